// Package config loads configuration structs from environment variables.
//
// Struct fields are annotated with github.com/caarlos0/env/v11 tags and .env
// files are read with github.com/joho/godotenv. Load caches one copy per
// struct type so that the HTTP server, the stores and the tenant service all
// read the same values:
//
//	type Config struct {
//		CacheBackend string        `env:"MULTISITE_CACHE_BACKEND" envDefault:"memory"`
//		CacheTTL     time.Duration `env:"MULTISITE_CACHE_TTL" envDefault:"0"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// LoadEnv reads explicit .env files (the CLI's --env-file flag) and clears the
// cache. Parse skips the cache entirely, which is what tests want.
package config
