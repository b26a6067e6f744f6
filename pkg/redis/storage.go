package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultScanBatchSize = 500

// Storage is a namespaced cache backend on top of a Redis client.
type Storage struct {
	db            redis.UniversalClient
	namespace     string
	scanBatchSize int64
}

// NewStorage wraps client. Keys are written as "<namespace>:<key>".
// An empty namespace is not allowed because Clear would have to wipe the database.
func NewStorage(client redis.UniversalClient, namespace string) *Storage {
	if namespace == "" {
		namespace = "multisite"
	}
	return &Storage{
		db:            client,
		namespace:     namespace,
		scanBatchSize: defaultScanBatchSize,
	}
}

// NewStorageFromConfig applies cfg.Namespace and cfg.ScanBatchSize.
func NewStorageFromConfig(client redis.UniversalClient, cfg Config) *Storage {
	s := NewStorage(client, cfg.Namespace)
	if cfg.ScanBatchSize > 0 {
		s.scanBatchSize = cfg.ScanBatchSize
	}
	return s
}

// Get returns false on redis.Nil.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	val, err := s.db.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(ErrStorage, err)
	}
	return val, true, nil
}

// Set stores value. A ttl <= 0 means no expiration.
func (s *Storage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.db.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.db.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// Clear deletes every key in the namespace. SCAN is used instead of KEYS so a large
// keyspace does not block the server.
func (s *Storage) Clear(ctx context.Context) error {
	var cursor uint64
	pattern := s.namespace + ":*"

	for {
		batch, next, err := s.db.Scan(ctx, cursor, pattern, s.scanBatchSize).Result()
		if err != nil {
			return errors.Join(ErrStorage, err)
		}
		if len(batch) > 0 {
			if err := s.db.Del(ctx, batch...).Err(); err != nil {
				return errors.Join(ErrStorage, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Namespace returns the key prefix used by this storage.
func (s *Storage) Namespace() string {
	return s.namespace
}

// Conn returns the underlying client.
func (s *Storage) Conn() redis.UniversalClient {
	return s.db
}

func (s *Storage) key(k string) string {
	return s.namespace + ":" + k
}
