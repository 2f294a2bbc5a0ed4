package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %s, want :8080", cfg.Addr)
	}
	if cfg.TokenTTL.Std() != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL.Std())
	}
	if cfg.DBPath == "" || cfg.ReportsDir == "" {
		t.Error("default paths must not be empty")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Addr != Default().Addr {
		t.Errorf("Addr = %s, want default", cfg.Addr)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "addr: \":9090\"\ntoken_ttl: 1h\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %s, want :9090", cfg.Addr)
	}
	if cfg.TokenTTL.Std() != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL.Std())
	}
	// Unspecified keys keep their defaults.
	if cfg.DBPath != Default().DBPath {
		t.Errorf("DBPath = %s, want default", cfg.DBPath)
	}
}

func TestLoadEnvOverridesSecret(t *testing.T) {
	t.Setenv("FIELDOPS_JWT_SECRET", "from-env")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %s, want from-env", cfg.JWTSecret)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "addr: [unclosed"},
		{"empty addr", "addr: \"\""},
		{"zero ttl", "token_ttl: 0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() on missing file succeeded, want error")
	}
}
