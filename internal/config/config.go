package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Server bind address for the front router (host:port)
	ServerAddr string

	// Base URL the router advertises
	ServerURL string

	// Directory holding per-tenant SQLite databases
	DataDir string

	// Known tenant ids. Empty means any tenant id may be resolved and started.
	Tenants []string

	// Tenant resolution
	TenantHeader       string
	BaseDomain         string
	ReservedSubdomains []string
	DefaultTenant      string

	// Worker process management
	WorkerBin          string
	WorkerStartTimeout time.Duration
	HealthInterval     time.Duration
	HealthFailures     int

	// Maximum pooled RPC channels across worker endpoints
	PoolSize int

	// Enable debug logging
	Debug bool
}

// Load reads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:         getEnv("SERVER_ADDR", "localhost:8080"),
		ServerURL:          getEnv("SERVER_URL", "http://localhost:8080"),
		DataDir:            getEnv("ACS_DATA_DIR", "data"),
		Tenants:            getEnvList("ACS_TENANTS"),
		TenantHeader:       getEnv("TENANT_HEADER", "X-Acs-Tenant"),
		BaseDomain:         getEnv("TENANT_BASE_DOMAIN", ""),
		ReservedSubdomains: getEnvListDefault("TENANT_RESERVED_SUBDOMAINS", []string{"www", "api", "admin"}),
		DefaultTenant:      getEnv("TENANT_DEFAULT", ""),
		WorkerBin:          getEnv("ACS_WORKER_BIN", ""),
		WorkerStartTimeout: getEnvDuration("WORKER_START_TIMEOUT", 15*time.Second),
		HealthInterval:     getEnvDuration("WORKER_HEALTH_INTERVAL", 5*time.Second),
		HealthFailures:     getEnvInt("WORKER_HEALTH_FAILURES", 3),
		PoolSize:           getEnvInt("CHANNEL_POOL_SIZE", 128),
		Debug:              getEnvBool("DEBUG", false),
	}

	if cfg.ServerAddr == "" {
		return nil, fmt.Errorf("SERVER_ADDR is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("ACS_DATA_DIR is required")
	}
	if cfg.HealthFailures < 1 {
		return nil, fmt.Errorf("WORKER_HEALTH_FAILURES must be at least 1")
	}
	if cfg.DefaultTenant != "" && len(cfg.Tenants) > 0 && !cfg.KnownTenant(cfg.DefaultTenant) {
		return nil, fmt.Errorf("TENANT_DEFAULT %q is not listed in ACS_TENANTS", cfg.DefaultTenant)
	}

	return cfg, nil
}

// KnownTenant reports whether the tenant id may be routed to. An empty
// ACS_TENANTS list accepts any id.
func (c *Config) KnownTenant(id string) bool {
	if len(c.Tenants) == 0 {
		return id != ""
	}
	for _, t := range c.Tenants {
		if t == id {
			return true
		}
	}
	return false
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	return getEnvListDefault(key, nil)
}

func getEnvListDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
