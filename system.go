package netroute

import "time"

// SystemOptions configures the host RouteManager.
type SystemOptions struct {
	// Namespace is a named network namespace (linux only). Empty means the
	// namespace of the calling process.
	Namespace string `yaml:"namespace,omitempty"`
	// Table is the routing table to manage (linux only). 0 means main.
	Table int `yaml:"table,omitempty"`
	// LinkCacheTTL bounds reuse of interface alias lookups.
	LinkCacheTTL time.Duration `yaml:"link_cache_ttl,omitempty"`
}
