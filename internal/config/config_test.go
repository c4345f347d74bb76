package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != "localhost:8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.TenantHeader != "X-Acs-Tenant" {
		t.Errorf("TenantHeader = %q", cfg.TenantHeader)
	}
	if cfg.WorkerStartTimeout != 15*time.Second {
		t.Errorf("WorkerStartTimeout = %v", cfg.WorkerStartTimeout)
	}
	if cfg.HealthFailures != 3 {
		t.Errorf("HealthFailures = %d", cfg.HealthFailures)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACS_TENANTS", "t1, t2 ,t3")
	t.Setenv("WORKER_HEALTH_INTERVAL", "250ms")
	t.Setenv("CHANNEL_POOL_SIZE", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Tenants) != 3 || cfg.Tenants[1] != "t2" {
		t.Errorf("Tenants = %v", cfg.Tenants)
	}
	if cfg.HealthInterval != 250*time.Millisecond {
		t.Errorf("HealthInterval = %v", cfg.HealthInterval)
	}
	if cfg.PoolSize != 7 {
		t.Errorf("PoolSize = %d", cfg.PoolSize)
	}
}

func TestDefaultTenantMustBeKnown(t *testing.T) {
	t.Setenv("ACS_TENANTS", "t1,t2")
	t.Setenv("TENANT_DEFAULT", "t9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown default tenant")
	}
}

func TestKnownTenant(t *testing.T) {
	cfg := &Config{Tenants: []string{"t1"}}
	if !cfg.KnownTenant("t1") || cfg.KnownTenant("t2") {
		t.Fatal("explicit tenant list not honored")
	}

	open := &Config{}
	if !open.KnownTenant("anything") || open.KnownTenant("") {
		t.Fatal("open tenant list should accept any non-empty id")
	}
}
