package domain

import (
	"net/url"
	"time"

	"go.trai.ch/zerr"
)

// Cache store drivers.
const (
	CacheDriverFS     = "fs"
	CacheDriverMemory = "memory"
	CacheDriverS3     = "s3"
)

// Queue drivers.
const (
	QueueDriverSQLite   = "sqlite"
	QueueDriverPostgres = "postgres"
)

// Config is the resolved daemon configuration.
type Config struct {
	Origin       string
	Listen       string
	LogFormat    string
	Cache        CacheConfig
	Queue        QueueConfig
	Sync         SyncConfig
	Connectivity ConnectivityConfig
}

// CacheConfig configures the response cache and the router lifecycle.
type CacheConfig struct {
	Version            CacheNamespace
	Driver             string
	Dir                string
	S3                 S3Config
	Precache           []string
	RevalidateTimeout  time.Duration
	InstallParallelism int
}

// S3Config configures the S3 cache store.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// QueueConfig configures the offline queue storage.
type QueueConfig struct {
	Driver string
	DSN    string
}

// SyncConfig configures the reconciler.
type SyncConfig struct {
	Endpoint    string
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	StaleAfter  time.Duration
	MaxBackoff  time.Duration
	Timeout     time.Duration
}

// ConnectivityConfig configures the origin health probe.
type ConnectivityConfig struct {
	HealthPath    string
	ProbeInterval time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Origin:    "http://localhost:3000",
		Listen:    "127.0.0.1:8787",
		LogFormat: "text",
		Cache: CacheConfig{
			Version:            "fieldsync-v1",
			Driver:             CacheDriverFS,
			Dir:                DefaultCachePath(),
			Precache:           []string{"/", "/index.html", "/manifest.webmanifest"},
			RevalidateTimeout:  15 * time.Second,
			InstallParallelism: 4,
		},
		Queue: QueueConfig{
			Driver: QueueDriverSQLite,
			DSN:    DefaultQueuePath(),
		},
		Sync: SyncConfig{
			Endpoint:    "/api/sync/batch",
			Interval:    time.Minute,
			BatchSize:   100,
			MaxAttempts: 8,
			StaleAfter:  5 * time.Minute,
			MaxBackoff:  5 * time.Minute,
			Timeout:     30 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			HealthPath:    "/api/health",
			ProbeInterval: 15 * time.Second,
			Timeout:       5 * time.Second,
		},
	}
}

// OriginURL parses the configured origin.
func (c *Config) OriginURL() (*url.URL, error) {
	u, err := url.Parse(c.Origin)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse origin"), "origin", c.Origin)
	}
	return u, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	u, err := c.OriginURL()
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return invalid("origin", c.Origin)
	}
	if err := c.Cache.Version.Validate(); err != nil {
		return zerr.Wrap(err, ErrInvalidConfig.Error())
	}
	switch c.Cache.Driver {
	case CacheDriverFS, CacheDriverMemory:
	case CacheDriverS3:
		if c.Cache.S3.Bucket == "" {
			return invalid("cache.s3.bucket", c.Cache.S3.Bucket)
		}
	default:
		return zerr.With(zerr.Wrap(ErrUnknownDriver, "cache"), "driver", c.Cache.Driver)
	}
	switch c.Queue.Driver {
	case QueueDriverSQLite, QueueDriverPostgres:
	default:
		return zerr.With(zerr.Wrap(ErrUnknownDriver, "queue"), "driver", c.Queue.Driver)
	}
	if c.Sync.MaxAttempts < 1 {
		return invalid("sync.maxAttempts", c.Sync.MaxAttempts)
	}
	if c.Sync.BatchSize < 1 {
		return invalid("sync.batchSize", c.Sync.BatchSize)
	}
	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"sync.interval", c.Sync.Interval},
		{"sync.staleAfter", c.Sync.StaleAfter},
		{"sync.maxBackoff", c.Sync.MaxBackoff},
		{"sync.timeout", c.Sync.Timeout},
		{"connectivity.probeInterval", c.Connectivity.ProbeInterval},
		{"connectivity.timeout", c.Connectivity.Timeout},
		{"cache.revalidateTimeout", c.Cache.RevalidateTimeout},
	} {
		if d.value <= 0 {
			return invalid(d.field, d.value.String())
		}
	}
	if c.Cache.InstallParallelism < 1 {
		return invalid("cache.installParallelism", c.Cache.InstallParallelism)
	}
	return nil
}

func invalid(field string, value any) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrInvalidConfig, "bad value"), "value", value), "field", field)
}
