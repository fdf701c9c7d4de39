// Package config loads societyhub settings. Values come from built-in
// defaults, then an optional YAML file, then SOCIETYHUB_* environment
// variables, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/societyhub/internal/filestore"
)

const envPrefix = "SOCIETYHUB_"

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type AuditConfig struct {
	Mode string `yaml:"mode"` // all, db, log or off
}

// Config holds the runtime configuration.
type Config struct {
	Addr           string           `yaml:"addr"`
	MaxUploadBytes int64            `yaml:"max_upload_bytes"`
	Storage        StorageConfig    `yaml:"storage"`
	Auth           AuthConfig       `yaml:"auth"`
	Log            LogConfig        `yaml:"log"`
	Audit          AuditConfig      `yaml:"audit"`
	Files          filestore.Config `yaml:"files"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           ":8080",
		MaxUploadBytes: 10 << 20,
		Storage:        StorageConfig{Driver: "sqlite", DSN: "./data/societyhub.db"},
		Auth:           AuthConfig{TokenDuration: 24 * time.Hour},
		Log:            LogConfig{Level: "info", Format: "text"},
		Audit:          AuditConfig{Mode: "all"},
		Files:          filestore.Config{Driver: "memory"},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have no usable default.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%sAUTH_JWT_SECRET is required", envPrefix)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Audit.Mode {
	case "all", "db", "log", "off":
	default:
		return fmt.Errorf("unsupported audit mode %q", c.Audit.Mode)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &cfg.Addr)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("AUDIT_MODE", &cfg.Audit.Mode)
	str("FILES_DRIVER", &cfg.Files.Driver)
	str("FILES_S3_BUCKET", &cfg.Files.S3.Bucket)
	str("FILES_S3_REGION", &cfg.Files.S3.Region)
	str("FILES_S3_ENDPOINT", &cfg.Files.S3.Endpoint)
	str("FILES_S3_PUBLIC_BASE_URL", &cfg.Files.S3.PublicBaseURL)

	if v, ok := lookup(envPrefix + "AUTH_TOKEN_DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_TOKEN_DURATION: %w", envPrefix, err)
		}
		cfg.Auth.TokenDuration = d
	}
	if v, ok := lookup(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v, ok := lookup(envPrefix + "FILES_S3_PATH_STYLE"); ok {
		cfg.Files.S3.PathStyle = strings.EqualFold(v, "true")
	}
	return nil
}
