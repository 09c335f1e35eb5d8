package config

import (
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// Fieldsyncfile represents the structure of the fieldsync.yaml configuration file.
type Fieldsyncfile struct {
	Origin       string          `yaml:"origin"`
	Listen       string          `yaml:"listen"`
	Log          LogDTO          `yaml:"log"`
	Cache        CacheDTO        `yaml:"cache"`
	Queue        QueueDTO        `yaml:"queue"`
	Sync         SyncDTO         `yaml:"sync"`
	Connectivity ConnectivityDTO `yaml:"connectivity"`
}

// LogDTO configures log output.
type LogDTO struct {
	Format string `yaml:"format"`
}

// CacheDTO configures the response cache.
type CacheDTO struct {
	Version            string        `yaml:"version"`
	Driver             string        `yaml:"driver"`
	Dir                string        `yaml:"dir"`
	S3                 S3DTO         `yaml:"s3"`
	Precache           []string      `yaml:"precache"`
	RevalidateTimeout  time.Duration `yaml:"revalidateTimeout"`
	InstallParallelism int           `yaml:"installParallelism"`
}

// S3DTO configures the S3 cache backend.
type S3DTO struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// QueueDTO configures the offline queue.
type QueueDTO struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SyncDTO configures the reconciler.
type SyncDTO struct {
	Endpoint    string        `yaml:"endpoint"`
	Interval    time.Duration `yaml:"interval"`
	BatchSize   int           `yaml:"batchSize"`
	MaxAttempts int           `yaml:"maxAttempts"`
	StaleAfter  time.Duration `yaml:"staleAfter"`
	MaxBackoff  time.Duration `yaml:"maxBackoff"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ConnectivityDTO configures the origin health probe.
type ConnectivityDTO struct {
	HealthPath    string        `yaml:"healthPath"`
	ProbeInterval time.Duration `yaml:"probeInterval"`
	Timeout       time.Duration `yaml:"timeout"`
}

func fromDomain(c *domain.Config) Fieldsyncfile {
	return Fieldsyncfile{
		Origin: c.Origin,
		Listen: c.Listen,
		Log:    LogDTO{Format: c.LogFormat},
		Cache: CacheDTO{
			Version: string(c.Cache.Version),
			Driver:  c.Cache.Driver,
			Dir:     c.Cache.Dir,
			S3: S3DTO{
				Bucket:    c.Cache.S3.Bucket,
				Region:    c.Cache.S3.Region,
				Endpoint:  c.Cache.S3.Endpoint,
				PathStyle: c.Cache.S3.PathStyle,
			},
			Precache:           c.Cache.Precache,
			RevalidateTimeout:  c.Cache.RevalidateTimeout,
			InstallParallelism: c.Cache.InstallParallelism,
		},
		Queue: QueueDTO{Driver: c.Queue.Driver, DSN: c.Queue.DSN},
		Sync: SyncDTO{
			Endpoint:    c.Sync.Endpoint,
			Interval:    c.Sync.Interval,
			BatchSize:   c.Sync.BatchSize,
			MaxAttempts: c.Sync.MaxAttempts,
			StaleAfter:  c.Sync.StaleAfter,
			MaxBackoff:  c.Sync.MaxBackoff,
			Timeout:     c.Sync.Timeout,
		},
		Connectivity: ConnectivityDTO{
			HealthPath:    c.Connectivity.HealthPath,
			ProbeInterval: c.Connectivity.ProbeInterval,
			Timeout:       c.Connectivity.Timeout,
		},
	}
}

func (f *Fieldsyncfile) toDomain() *domain.Config {
	return &domain.Config{
		Origin:    f.Origin,
		Listen:    f.Listen,
		LogFormat: f.Log.Format,
		Cache: domain.CacheConfig{
			Version: domain.CacheNamespace(f.Cache.Version),
			Driver:  f.Cache.Driver,
			Dir:     f.Cache.Dir,
			S3: domain.S3Config{
				Bucket:    f.Cache.S3.Bucket,
				Region:    f.Cache.S3.Region,
				Endpoint:  f.Cache.S3.Endpoint,
				PathStyle: f.Cache.S3.PathStyle,
			},
			Precache:           f.Cache.Precache,
			RevalidateTimeout:  f.Cache.RevalidateTimeout,
			InstallParallelism: f.Cache.InstallParallelism,
		},
		Queue: domain.QueueConfig{Driver: f.Queue.Driver, DSN: f.Queue.DSN},
		Sync: domain.SyncConfig{
			Endpoint:    f.Sync.Endpoint,
			Interval:    f.Sync.Interval,
			BatchSize:   f.Sync.BatchSize,
			MaxAttempts: f.Sync.MaxAttempts,
			StaleAfter:  f.Sync.StaleAfter,
			MaxBackoff:  f.Sync.MaxBackoff,
			Timeout:     f.Sync.Timeout,
		},
		Connectivity: domain.ConnectivityConfig{
			HealthPath:    f.Connectivity.HealthPath,
			ProbeInterval: f.Connectivity.ProbeInterval,
			Timeout:       f.Connectivity.Timeout,
		},
	}
}
