package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an optional config file. Every field is
// optional; set fields override the environment-derived configuration.
type fileConfig struct {
	Port          string `yaml:"port,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
	PublicBaseURL string `yaml:"public_base_url,omitempty"`

	CacheBackend string `yaml:"cache_backend,omitempty"`
	CacheTTL     string `yaml:"cache_ttl,omitempty"`

	ShapeDiver struct {
		Ticket    string `yaml:"ticket,omitempty"`
		Endpoint  string `yaml:"endpoint,omitempty"`
		JSONParam string `yaml:"json_param,omitempty"`
	} `yaml:"shapediver"`
}

// ApplyFile overlays a YAML config file onto cfg. Missing file is not an
// error when the path came from a default; callers pass required=true when
// the operator named the file explicitly.
func ApplyFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("load config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.PublicBaseURL != "" {
		cfg.PublicBaseURL = fc.PublicBaseURL
	}
	if fc.CacheBackend != "" {
		cfg.CacheBackend = fc.CacheBackend
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("config file %q: invalid cache_ttl: %w", path, err)
		}
		cfg.CacheTTL = d
	}
	if fc.ShapeDiver.Ticket != "" {
		cfg.ShapeDiverTicket = fc.ShapeDiver.Ticket
	}
	if fc.ShapeDiver.Endpoint != "" {
		cfg.ShapeDiverEndpoint = fc.ShapeDiver.Endpoint
	}
	if fc.ShapeDiver.JSONParam != "" {
		cfg.JSONParamName = fc.ShapeDiver.JSONParam
	}
	return nil
}
