package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jursonmo/netroute"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected log format 'json', got '%s'", cfg.LogFormat)
	}
	if cfg.LinkCacheTTL() != netroute.DefaultLinkCacheTTL {
		t.Errorf("Expected link cache ttl %v, got %v", netroute.DefaultLinkCacheTTL, cfg.LinkCacheTTL())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "invalid" },
			expectError: true,
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			expectError: true,
		},
		{
			name:        "negative table",
			mutate:      func(c *Config) { c.System.Table = -1 },
			expectError: true,
		},
		{
			name: "invalid route",
			mutate: func(c *Config) {
				c.Routes = []netroute.RouteSpec{{Destination: "not-a-cidr"}}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Expected error: %v, got: %v", tt.expectError, err)
			}
		})
	}
}

func TestValidateReportsRouteKind(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Routes = []netroute.RouteSpec{
		{Destination: "10.0.0.0/8"},
		{Destination: "10.0.0.0/8", Gateway: "2001:db8::1"},
	}
	err := cfg.Validate()
	if !errors.Is(err, netroute.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "non-existent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level, got: %s", cfg.LogLevel)
	}

	path := filepath.Join(t.TempDir(), "netroute.yaml")
	data := `
log_level: debug
log_format: text
check_mode: true
system:
  namespace: blue
  table: 100
  link_cache_ttl: 5s
routes:
  - destination: 10.10.0.0/16
    gateway: 192.168.1.1
    metric: 10
  - destination: 2001:db8::/64
    interface_alias: eth1
    state: absent
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := &Config{
		LogLevel:  "debug",
		LogFormat: "text",
		CheckMode: true,
		System: netroute.SystemOptions{
			Namespace:    "blue",
			Table:        100,
			LinkCacheTTL: 5 * time.Second,
		},
		Routes: []netroute.RouteSpec{
			{Destination: "10.10.0.0/16", Gateway: "192.168.1.1", Metric: 10},
			{Destination: "2001:db8::/64", InterfaceAlias: "eth1", State: netroute.StateAbsent},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}

	if err := os.WriteFile(path, []byte("routes: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
