// Package config loads CLI settings. Values are layered: defaults, then an
// optional YAML file, then .env, then IMGCONV_* environment variables.
// Command-line flags are applied on top by the commands package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"imageConverter/converter"
)

const envPrefix = "IMGCONV_"

type Config struct {
	Backend     string                  `yaml:"backend"`
	Quality     int                     `yaml:"quality"`
	Workers     int                     `yaml:"workers"`
	TaskTimeout time.Duration           `yaml:"task_timeout"`
	Extensions  []string                `yaml:"extensions"`
	LogLevel    string                  `yaml:"log_level"`
	LogFormat   string                  `yaml:"log_format"`
	Magick      converter.MagickOptions `yaml:"magick"`
}

func Default() *Config {
	return &Config{
		Backend:    string(converter.BackendBitmap),
		Quality:    converter.DefaultQuality,
		Workers:    0,
		Extensions: []string{".jpg", ".jpeg"},
		LogLevel:   "warn",
		LogFormat:  "console",
		Magick:     converter.DefaultMagickOptions(),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory if one exists, and
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Backend = getEnv("BACKEND", c.Backend)
	c.Quality = getEnvAsInt("QUALITY", c.Quality)
	c.Workers = getEnvAsInt("WORKERS", c.Workers)
	c.TaskTimeout = getEnvAsDuration("TASK_TIMEOUT", c.TaskTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Magick.Binary = getEnv("MAGICK_BINARY", c.Magick.Binary)
	if exts := getEnv("EXTENSIONS", ""); exts != "" {
		c.Extensions = strings.Split(exts, ",")
	}
}

// Validate checks enum fields and ranges and normalizes extensions to
// lowercase with a leading dot.
func (c *Config) Validate() error {
	if _, err := converter.ParseBackend(c.Backend); err != nil {
		return err
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range (0-100)", c.Quality)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task timeout must not be negative, got %s", c.TaskTimeout)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (use 'console' or 'json')", c.LogFormat)
	}

	exts := make([]string, 0, len(c.Extensions))
	for _, e := range c.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		return errors.New("at least one input extension is required")
	}
	c.Extensions = exts
	return nil
}

// BackendKind returns the parsed backend. Validate must have succeeded.
func (c *Config) BackendKind() converter.BackendKind {
	kind, _ := converter.ParseBackend(c.Backend)
	return kind
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
