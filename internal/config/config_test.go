package config

import "testing"

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("EXPIRY_CRON", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DEBUG", "true")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.ExpiryCron != "@daily" {
		t.Errorf("ExpiryCron = %q, want @daily", cfg.ExpiryCron)
	}
	if cfg.DBMaxOpenConns != 20 {
		t.Errorf("DBMaxOpenConns = %d, want fallback 20", cfg.DBMaxOpenConns)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false for APP_ENV=production")
	}
}
