// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Config is the top-level quire configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Files     FilesConfig               `mapstructure:"files"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    ModelsConfig              `mapstructure:"models"`
}

// ServerConfig controls how the HTTP API listens for connections.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// StorageConfig selects and locates the metadata and vector stores.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	DatabaseURL      string `mapstructure:"database_url"`
	DataPath         string `mapstructure:"data_path"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// FilesConfig selects where document bytes live.
type FilesConfig struct {
	Backend string      `mapstructure:"backend"` // "filesystem" or "minio"
	Path    string      `mapstructure:"path"`    // filesystem base dir
	MinIO   MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig holds S3-compatible storage settings.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection.
type ModelsConfig struct {
	Chat  string `mapstructure:"chat"`  // default "provider/model" for generation
	Embed string `mapstructure:"embed"` // default "provider/model" for embeddings
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix QUIRE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8642")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.database_url", "sqlite:///data/metadata.db")
	v.SetDefault("storage.data_path", "data")
	v.SetDefault("storage.vector_dimensions", 1536)
	v.SetDefault("files.backend", "filesystem")
	v.SetDefault("files.path", "data/files")
	v.SetDefault("models.chat", "openai/gpt-4.1-mini")
	v.SetDefault("models.embed", "openai/text-embedding-3-small")

	// Environment
	v.SetEnvPrefix("QUIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, quireerr.Errorf(quireerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, quireerr.Errorf(quireerr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found, collecting issues rather than stopping at the
// first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateFiles()...)
	errs = append(errs, c.validateModels()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}

	if c.Storage.DatabaseURL == "" {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: storage.database_url must not be empty"))
	}

	if c.Storage.DataPath == "" {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: storage.data_path must not be empty"))
	}

	if c.Storage.VectorDimensions <= 0 {
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: storage.vector_dimensions must be greater than 0, got %d",
			c.Storage.VectorDimensions))
	}

	return errs
}

func (c *Config) validateFiles() []error {
	var errs []error

	switch c.Files.Backend {
	case "filesystem":
		if c.Files.Path == "" {
			errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
				"config: files.path must not be empty for the filesystem backend"))
		}
	case "minio":
		if c.Files.MinIO.Endpoint == "" {
			errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
				"config: files.minio.endpoint must not be empty for the minio backend"))
		}
		if c.Files.MinIO.Bucket == "" {
			errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
				"config: files.minio.bucket must not be empty for the minio backend"))
		}
	default:
		errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
			"config: files.backend must be one of [filesystem, minio], got %q", c.Files.Backend))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	for _, ref := range []struct {
		key   string
		value string
	}{
		{"models.chat", c.Models.Chat},
		{"models.embed", c.Models.Embed},
	} {
		if ref.value == "" {
			errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
				"config: %s must not be empty", ref.key))
			continue
		}
		if !strings.Contains(ref.value, "/") {
			errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
				"config: %s must be in \"provider/model\" format, got %q", ref.key, ref.value))
			continue
		}
		if c.Providers != nil {
			providerName := providerFromModel(ref.value)
			if _, ok := c.Providers[providerName]; !ok {
				errs = append(errs, quireerr.Errorf(quireerr.CodeConfigValidateInvalidValue,
					"config: %s %q references provider %q which is not configured",
					ref.key, ref.value, providerName))
			}
		}
	}

	return errs
}

// providerFromModel extracts the provider prefix from a "provider/model" string.
func providerFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}
