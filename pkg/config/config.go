package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream  UpstreamConfig
	Session   SessionConfig
	Redis     RedisConfig
	Snapshots SnapshotsConfig
	Database  DatabaseConfig
	Engine    EngineConfig
	Exports   ExportsConfig
	CORS      CORSConfig
	Log       LogConfig
}

// UpstreamConfig points the gateway at the remote admin REST API.
type UpstreamConfig struct {
	BaseURL     string
	Timeout     time.Duration
	StaticToken string
}

// SessionConfig controls where the admin login session is kept.
type SessionConfig struct {
	UseRedis bool
	TTL      time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SnapshotsConfig toggles persisting entity state snapshots to Postgres.
type SnapshotsConfig struct {
	Enabled bool
	Workers int
	Retries int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// EngineConfig sizes the per-entity trigger listeners.
type EngineConfig struct {
	TriggerBuffer   int
	RefetchWorkers  int
	NotifyRetention int
}

// ExportsConfig governs CSV/PDF export rendering and the on-disk archive of
// rendered files.
type ExportsConfig struct {
	Enabled     bool
	Title       string
	Dir         string
	ShareSecret string
	ShareTTL    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL:     strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:     parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 30*time.Second),
		StaticToken: v.GetString("UPSTREAM_STATIC_TOKEN"),
	}

	cfg.Session = SessionConfig{
		UseRedis: v.GetBool("SESSION_USE_REDIS"),
		TTL:      parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Snapshots = SnapshotsConfig{
		Enabled: v.GetBool("ENABLE_SNAPSHOTS"),
		Workers: v.GetInt("SNAPSHOT_WORKERS"),
		Retries: v.GetInt("SNAPSHOT_RETRIES"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Engine = EngineConfig{
		TriggerBuffer:   v.GetInt("ENGINE_TRIGGER_BUFFER"),
		RefetchWorkers:  v.GetInt("ENGINE_REFETCH_WORKERS"),
		NotifyRetention: v.GetInt("ENGINE_NOTIFY_RETENTION"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:     v.GetBool("ENABLE_EXPORTS"),
		Title:       v.GetString("EXPORTS_TITLE"),
		Dir:         v.GetString("EXPORTS_DIR"),
		ShareSecret: v.GetString("EXPORTS_SHARE_SECRET"),
		ShareTTL:    parseDuration(v.GetString("EXPORTS_SHARE_TTL"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_STATIC_TOKEN", "")

	v.SetDefault("SESSION_USE_REDIS", false)
	v.SetDefault("SESSION_TTL", "24h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_SNAPSHOTS", false)
	v.SetDefault("SNAPSHOT_WORKERS", 1)
	v.SetDefault("SNAPSHOT_RETRIES", 3)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admin_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENGINE_TRIGGER_BUFFER", 32)
	v.SetDefault("ENGINE_REFETCH_WORKERS", 2)
	v.SetDefault("ENGINE_NOTIFY_RETENTION", 100)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_TITLE", "Admin Console Export")
	v.SetDefault("EXPORTS_DIR", "")
	v.SetDefault("EXPORTS_SHARE_SECRET", "")
	v.SetDefault("EXPORTS_SHARE_TTL", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
