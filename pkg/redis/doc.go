// Package redis connects to Redis and exposes it as a shared multisite cache backend.
//
// The package wraps github.com/redis/go-redis/v9 and adds:
//
//   - Connect, which pings the server and retries with a growing delay until the
//     configured timeout elapses.
//   - Storage, a namespaced implementation of cache.Backend. Every key is stored
//     under "<namespace>:<key>" and Clear removes only the namespace, never the
//     whole database.
//   - Healthcheck for readiness probes.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	backend := redis.NewStorage(client, cfg.Namespace)
//	registry.Register(cache.BackendRedis, backend)
//
// Configuration is read from the environment with github.com/caarlos0/env:
// REDIS_URL, REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT,
// REDIS_NAMESPACE and REDIS_SCAN_BATCH_SIZE.
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrHealthcheckFailed, ...) are joined with the
// underlying go-redis error, so both can be matched with errors.Is.
package redis
