// Package config loads mspfilter settings from built-in defaults, an
// optional YAML file and MSPFILTER_* environment variables.
//
// Precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Config file
//  4. Built-in defaults
//
// Environment variables:
//   - MSPFILTER_ADDR=":8080"
//   - MSPFILTER_WORKERS=0 (one per CPU)
//   - MSPFILTER_THRESHOLD=0
//   - MSPFILTER_DATA_DIR="./data"
//   - MSPFILTER_LOG_LEVEL="info"
//   - MSPFILTER_LOG_FORMAT="json"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Scan   ScanConfig   `yaml:"scan"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP job server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ScanConfig holds defaults for scan jobs.
type ScanConfig struct {
	// Workers is the number of scan goroutines; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// Threshold is the corrected nat score a target must reach to pass.
	Threshold float32 `yaml:"threshold"`
}

// StoreConfig configures report persistence.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Scan:   ScanConfig{Workers: 0, Threshold: 0},
		Store:  StoreConfig{DataDir: "./data"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadFromFile layers the YAML file at path and then the environment over
// the defaults. A missing file or an empty path yields defaults plus
// environment.
func LoadFromFile(path string) (*Config, error) {
	config := LoadDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnvVars(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvVars(config *Config) error {
	config.Server.Addr = getEnv("MSPFILTER_ADDR", config.Server.Addr)
	config.Store.DataDir = getEnv("MSPFILTER_DATA_DIR", config.Store.DataDir)
	config.Log.Level = getEnv("MSPFILTER_LOG_LEVEL", config.Log.Level)
	config.Log.Format = getEnv("MSPFILTER_LOG_FORMAT", config.Log.Format)

	if val := os.Getenv("MSPFILTER_WORKERS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid MSPFILTER_WORKERS %q: %w", val, err)
		}
		config.Scan.Workers = n
	}
	if val := os.Getenv("MSPFILTER_THRESHOLD"); val != "" {
		f, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return fmt.Errorf("invalid MSPFILTER_THRESHOLD %q: %w", val, err)
		}
		config.Scan.Threshold = float32(f)
	}
	return nil
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Scan.Workers)
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Addr: %s, Workers: %d, Threshold: %g, DataDir: %s, Log: %s/%s}",
		c.Server.Addr, c.Scan.Workers, c.Scan.Threshold, c.Store.DataDir,
		c.Log.Level, c.Log.Format,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
