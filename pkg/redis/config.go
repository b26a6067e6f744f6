package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL in the format "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`            // RetryInterval is the base delay between attempts; attempt n waits n*RetryInterval.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`          // ConnectTimeout bounds the whole connection procedure.
	Namespace      string        `env:"REDIS_NAMESPACE" envDefault:"multisite"`          // Namespace prefixes every key written by Storage.
	ScanBatchSize  int64         `env:"REDIS_SCAN_BATCH_SIZE" envDefault:"500"`          // ScanBatchSize is the COUNT hint used when clearing a namespace.
}
