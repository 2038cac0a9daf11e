package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	// empty durations fall back to their defaults
	t.Setenv("CHECKIN_WINDOW", "")
	t.Setenv("CATALOG_TTL", "")
	t.Setenv("PORT", "8080")

	cfg := LoadConfig()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CheckinWindow != 6*time.Hour {
		t.Errorf("CheckinWindow = %s, want 6h", cfg.CheckinWindow)
	}
	if cfg.CatalogTTL != 24*time.Hour {
		t.Errorf("CatalogTTL = %s, want 24h", cfg.CatalogTTL)
	}
	if cfg.APIVersion == "" {
		t.Error("APIVersion should default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("CHECKIN_WINDOW", "90m")
	t.Setenv("DEDUP_TTL", "30")
	t.Setenv("WHATSAPP_HTTP_TIMEOUT", "not-a-duration")
	t.Setenv("REGISTRATION_FLOW_ID", "42")

	cfg := LoadConfig()
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if cfg.CheckinWindow != 90*time.Minute {
		t.Errorf("CheckinWindow = %s", cfg.CheckinWindow)
	}
	if cfg.DedupTTL != 30*time.Second {
		t.Errorf("DedupTTL = %s, want 30s", cfg.DedupTTL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %s, want fallback 15s", cfg.HTTPTimeout)
	}
	if cfg.RegistrationFlowID != "42" {
		t.Errorf("RegistrationFlowID = %q", cfg.RegistrationFlowID)
	}
}
