// Package config provides the configuration loader for fieldsync.
package config

import (
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	logger ports.Logger
}

// NewLoader creates a new FileConfigLoader.
func NewLoader(log ports.Logger) *FileConfigLoader {
	return &FileConfigLoader{logger: log}
}

// Load reads the configuration file at path and overlays it on the defaults.
func (l *FileConfigLoader) Load(path string) (*domain.Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("no configuration file, using defaults", "path", path)
		return domain.DefaultConfig(), nil
	}
	return cfg, err
}

// Load reads a configuration file from the given path.
// Keys absent from the file keep their default values.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and validates the result.
func Parse(data []byte) (*domain.Config, error) {
	file := fromDomain(domain.DefaultConfig())
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	cfg := file.toDomain()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the configuration path from the environment or the default file name.
func Path() string {
	if p := os.Getenv(domain.ConfigEnvVar); p != "" {
		return p
	}
	return domain.ConfigFileName
}
