// Package config loads the optional server YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server-level configuration. Per-stream settings arrive as
// JSON on the API instead.
type Config struct {
	Listen string `yaml:"listen"`

	Auth struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"auth"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
	} `yaml:"kafka"`

	Stream struct {
		RateLimit  float64 `yaml:"rate_limit"`
		BurstLimit int     `yaml:"burst_limit"`
		BufferSize int     `yaml:"buffer_size"`
	} `yaml:"stream"`

	Log struct {
		Output string `yaml:"output"` // "nop" or "stdout"
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Listen: ":8080"}
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Stream.RateLimit = 1000.0
	cfg.Stream.BurstLimit = 2000
	cfg.Stream.BufferSize = 1000
	cfg.Log.Output = "nop"
	return cfg
}

// Load reads the YAML file at path, overlaying the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Stream.RateLimit <= 0 || cfg.Stream.BufferSize <= 0 {
		return nil, fmt.Errorf("stream rate_limit and buffer_size must be positive")
	}
	return cfg, nil
}
