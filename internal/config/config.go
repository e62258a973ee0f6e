package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the process configuration shared by the server and lodgingctl.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	Log      LogConfig     `yaml:"log"`
	Storage  StorageConfig `yaml:"storage"`
	Auth     AuthConfig    `yaml:"auth"`
	Notify   NotifyConfig  `yaml:"notify"`
	Timezone string        `yaml:"timezone"`
}

type HTTPConfig struct {
	Addr               string   `yaml:"addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects and configures the persistence gateway.
type StorageConfig struct {
	Backend             string `yaml:"backend"`
	DataFile            string `yaml:"data_file"`
	SQLitePath          string `yaml:"sqlite_path"`
	PostgresDSN         string `yaml:"postgres_dsn"`
	PostgresTablePrefix string `yaml:"postgres_table_prefix"`
	MongoURI            string `yaml:"mongo_uri"`
	MongoDatabase       string `yaml:"mongo_database"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load reads env defaults, overlays the YAML file at path (or LODGING_CONFIG
// when path is empty) and fills fields the file left empty from env.
func Load(path string) (Config, error) {
	cfg := fromEnv()

	if path == "" {
		path = os.Getenv("LODGING_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.fillEmpty(fromEnv())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:               getenvDefault("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: splitCSV(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
		},
		Log: LogConfig{
			Level:  getenvDefault("LOG_LEVEL", "info"),
			Format: getenvDefault("LOG_FORMAT", "text"),
		},
		Storage: StorageConfig{
			Backend:             strings.ToLower(getenvDefault("STORAGE_BACKEND", BackendFile)),
			DataFile:            getenvDefault("DATA_FILE", "data/lodging.json"),
			SQLitePath:          getenvDefault("SQLITE_PATH", "data/lodging.db"),
			PostgresDSN:         getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
			PostgresTablePrefix: os.Getenv("PG_TABLE_PREFIX"),
			MongoURI:            os.Getenv("MONGO_URI"),
			MongoDatabase:       getenvDefault("MONGO_DATABASE", "lodging"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:    getenvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Timezone: os.Getenv("TIMEZONE"),
	}
}

func (c *Config) fillEmpty(env Config) {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = env.HTTP.Addr
	}
	if len(c.HTTP.CORSAllowedOrigins) == 0 {
		c.HTTP.CORSAllowedOrigins = env.HTTP.CORSAllowedOrigins
	}
	if c.Log.Level == "" {
		c.Log.Level = env.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = env.Log.Format
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = env.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.DataFile == "" {
		c.Storage.DataFile = env.Storage.DataFile
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = env.Storage.SQLitePath
	}
	if c.Storage.PostgresDSN == "" {
		c.Storage.PostgresDSN = env.Storage.PostgresDSN
	}
	if c.Storage.PostgresTablePrefix == "" {
		c.Storage.PostgresTablePrefix = env.Storage.PostgresTablePrefix
	}
	if c.Storage.MongoURI == "" {
		c.Storage.MongoURI = env.Storage.MongoURI
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = env.Storage.MongoDatabase
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = env.Auth.JWTSecret
	}
	if c.Notify.WebhookURL == "" {
		c.Notify.WebhookURL = env.Notify.WebhookURL
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = env.Notify.Timeout
	}
	if c.Timezone == "" {
		c.Timezone = env.Timezone
	}
}

// Validate checks the storage selection and the timezone.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.DataFile == "" {
			return errors.New("config: file backend requires DATA_FILE")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: sqlite backend requires SQLITE_PATH")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: postgres backend requires DATABASE_URL or PG_DSN")
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("config: mongo backend requires MONGO_URI")
		}
		if c.Storage.MongoDatabase == "" {
			return errors.New("config: mongo backend requires MONGO_DATABASE")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty or "Local" is the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
