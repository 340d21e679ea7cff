package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jursonmo/netroute"
)

// Config is the netroute configuration file.
//
//	log_level: info
//	log_format: json
//	system:
//	  namespace: blue
//	  table: 100
//	  link_cache_ttl: 30s
//	routes:
//	  - destination: 10.10.0.0/16
//	    gateway: 192.168.1.1
//	    metric: 10
type Config struct {
	LogLevel  string                 `yaml:"log_level"`
	LogFormat string                 `yaml:"log_format"`
	CheckMode bool                   `yaml:"check_mode"`
	Report    string                 `yaml:"report,omitempty"`
	System    netroute.SystemOptions `yaml:"system"`
	Routes    []netroute.RouteSpec   `yaml:"routes"`
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		System: netroute.SystemOptions{
			LinkCacheTTL: netroute.DefaultLinkCacheTTL,
		},
	}
}

// LoadConfig reads path on top of the defaults. An empty path or a missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	if c.System.Table < 0 {
		return fmt.Errorf("table must be >= 0")
	}
	if c.System.LinkCacheTTL < 0 {
		return fmt.Errorf("link_cache_ttl must be >= 0")
	}

	var errs []error
	for i, r := range c.Routes {
		if _, err := r.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("routes[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LinkCacheTTL returns the configured TTL or the package default.
func (c *Config) LinkCacheTTL() time.Duration {
	if c.System.LinkCacheTTL == 0 {
		return netroute.DefaultLinkCacheTTL
	}
	return c.System.LinkCacheTTL
}
