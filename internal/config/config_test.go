package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.MaxUploadBytes != 5<<20 {
		t.Fatalf("expected 5 MiB upload limit, got %d", cfg.App.MaxUploadBytes)
	}
	if cfg.Security.TokenTTL != time.Hour {
		t.Fatalf("expected 1h token ttl, got %s", cfg.Security.TokenTTL)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "app": {"http_addr": ":9000"},
  "database": {"driver": "sqlite", "dsn": "data/taskhub.db"},
  "security": {"token_ttl": "30m", "jwt_secret": "file-secret"}
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("APP_UPLOAD_DIR", "/tmp/uploads")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTPAddr != ":9000" {
		t.Fatalf("expected http addr from file, got %s", cfg.App.HTTPAddr)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "data/taskhub.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Security.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.Security.TokenTTL)
	}
	if cfg.Security.JWTSecret != "env-secret" {
		t.Fatalf("expected env secret override, got %s", cfg.Security.JWTSecret)
	}
	if cfg.App.UploadDir != "/tmp/uploads" {
		t.Fatalf("expected upload dir override, got %s", cfg.App.UploadDir)
	}
	if cfg.App.CleanupWorkers != 2 {
		t.Fatalf("expected default cleanup workers, got %d", cfg.App.CleanupWorkers)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"security": {"token_ttl": "soon"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error for invalid duration")
	}
}

func TestApplyEnvOverrides_ComposesMySQLDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "tasks")

	cfg := Default()
	applyEnvOverrides(cfg)

	parsed := parseMySQLDSN(cfg.Database.DSN)
	if parsed.Addr != "db.internal:3307" {
		t.Fatalf("unexpected addr %s", parsed.Addr)
	}
	if parsed.User != "app" || parsed.DBName != "tasks" {
		t.Fatalf("unexpected dsn %s", cfg.Database.DSN)
	}
}
