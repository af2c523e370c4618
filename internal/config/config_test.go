package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "LOG_LEVEL", "STORAGE_BACKEND", "DB_PATH", "FIRESTORE_PROJECT_ID", "REDIS_ADDR", "JWT_SECRET", "AUTH_DISABLED", "STATIC_PATH"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage.Backend != BackendSQLite || cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.UsesDevSecret() {
		t.Error("UsesDevSecret() = false for defaults")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = "9090"
default_currency = "EUR"

[storage]
backend = "firestore"
firestore_project_id = "justsplit-dev"
redis_addr = "localhost:6379"

[auth]
jwt_secret = "s3cret"
token_ttl = "2h"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" || cfg.DefaultCurrency != "EUR" {
		t.Errorf("top-level settings not applied: %+v", cfg)
	}
	if cfg.Storage.Backend != BackendFirestore || cfg.Storage.FirestoreProjectID != "justsplit-dev" {
		t.Errorf("storage settings not applied: %+v", cfg.Storage)
	}
	if cfg.Storage.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want default kept", cfg.Storage.DBPath)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("auth settings not applied: %+v", cfg.Auth)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = "9090"
[storage]
db_path = "/tmp/file.db"
`)
	t.Setenv("PORT", "7070")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("AUTH_DISABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "7070" || cfg.Storage.DBPath != "/tmp/env.db" || !cfg.Auth.Disabled {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad toml", body: `port = `, wantErr: "failed to parse config"},
		{name: "bad ttl", body: "[auth]\ntoken_ttl = \"soon\"", wantErr: "token_ttl"},
		{name: "unknown backend", body: "[storage]\nbackend = \"mongo\"", wantErr: "unknown storage backend"},
		{name: "firestore without project", body: "[storage]\nbackend = \"firestore\"", wantErr: "firestore_project_id"},
		{name: "bad AUTH_DISABLED", env: map[string]string{"AUTH_DISABLED": "maybe"}, wantErr: "AUTH_DISABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
