package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	Command        string   `json:"command" yaml:"command" toml:"command"`
	MaxConcurrent  int      `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxQueueDepth  int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	TimeoutSeconds int64    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	DefaultModel   string   `json:"default_model" yaml:"default_model" toml:"default_model"`
	Models         []string `json:"models" yaml:"models" toml:"models"`
	APIKeys        []string `json:"api_keys" yaml:"api_keys" toml:"api_keys"`
	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
