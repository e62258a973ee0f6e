package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "STORAGE_BACKEND", "DATA_FILE", "SQLITE_PATH",
	"DATABASE_URL", "PG_DSN", "PG_TABLE_PREFIX", "MONGO_URI", "MONGO_DATABASE",
	"AUTH_JWT_SECRET", "CORS_ALLOWED_ORIGINS", "NOTIFY_WEBHOOK_URL", "NOTIFY_TIMEOUT",
	"TIMEZONE", "LODGING_CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.DataFile != "data/lodging.json" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Notify.Timeout != 10*time.Second {
		t.Fatalf("timeout: %v", cfg.Notify.Timeout)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 1 || cfg.HTTP.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("cors: %v", cfg.HTTP.CORSAllowedOrigins)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("location: %v %v", loc, err)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("PG_DSN", "postgres://localhost/lodging")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.PostgresDSN != "postgres://localhost/lodging" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Notify.Timeout != 3*time.Second {
		t.Fatalf("timeout: %v", cfg.Notify.Timeout)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 2 {
		t.Fatalf("cors: %v", cfg.HTTP.CORSAllowedOrigins)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/Sao_Paulo" {
		t.Fatalf("location: %v %v", loc, err)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "lodging.yaml")
	data := []byte(`
http:
  addr: ":9090"
storage:
  backend: sqlite
  sqlite_path: /tmp/lodging.db
notify:
  webhook_url: http://hooks.local/x
  timeout: 5s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LODGING_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.SQLitePath != "/tmp/lodging.db" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Notify.Timeout != 5*time.Second || cfg.Notify.WebhookURL != "http://hooks.local/x" {
		t.Fatalf("notify: %+v", cfg.Notify)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("secret should come from env: %q", cfg.Auth.JWTSecret)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level: %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		storage StorageConfig
		tz      string
		wantErr bool
	}{
		{name: "memory", storage: StorageConfig{Backend: BackendMemory}},
		{name: "file", storage: StorageConfig{Backend: BackendFile, DataFile: "x.json"}},
		{name: "file missing path", storage: StorageConfig{Backend: BackendFile}, wantErr: true},
		{name: "sqlite missing path", storage: StorageConfig{Backend: BackendSQLite}, wantErr: true},
		{name: "postgres missing dsn", storage: StorageConfig{Backend: BackendPostgres}, wantErr: true},
		{name: "mongo missing uri", storage: StorageConfig{Backend: BackendMongo, MongoDatabase: "db"}, wantErr: true},
		{name: "mongo missing database", storage: StorageConfig{Backend: BackendMongo, MongoURI: "mongodb://x"}, wantErr: true},
		{name: "mongo", storage: StorageConfig{Backend: BackendMongo, MongoURI: "mongodb://x", MongoDatabase: "db"}},
		{name: "unknown", storage: StorageConfig{Backend: "redis"}, wantErr: true},
		{name: "bad timezone", storage: StorageConfig{Backend: BackendMemory}, tz: "Mars/Olympus", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{Storage: tc.storage, Timezone: tc.tz}.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
