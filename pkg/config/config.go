package config

import (
	"errors"
	"io/fs"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Availability AvailabilityConfig
	Bookings     BookingsConfig
	CacheWorker  CacheWorkerConfig
	Exports      ExportsConfig
	Docs         DocsConfig
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

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AvailabilityConfig tunes the slot engine and its template cache.
type AvailabilityConfig struct {
	TemplateCacheEnabled bool
	TemplateCacheTTL     time.Duration
	MaxRangeDays         int
	DefaultTimezone      string
}

// BookingsConfig gates the serialised session booking endpoints.
type BookingsConfig struct {
	Enabled bool
}

// CacheWorkerConfig sizes the background cache invalidation queue.
type CacheWorkerConfig struct {
	Concurrency int
	Retries     int
	RetryDelay  time.Duration
}

// ExportsConfig toggles CSV/PDF slot exports.
type ExportsConfig struct {
	Enabled bool
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxRange := v.GetInt("AVAILABILITY_MAX_RANGE_DAYS")
	if maxRange <= 0 {
		maxRange = 92
	}
	cfg.Availability = AvailabilityConfig{
		TemplateCacheEnabled: v.GetBool("ENABLE_TEMPLATE_CACHE"),
		TemplateCacheTTL:     parseDuration(v.GetString("TEMPLATE_CACHE_TTL"), 15*time.Minute),
		MaxRangeDays:         maxRange,
		DefaultTimezone:      v.GetString("DEFAULT_TIMEZONE"),
	}

	cfg.Bookings = BookingsConfig{
		Enabled: v.GetBool("ENABLE_BOOKINGS"),
	}

	cfg.CacheWorker = CacheWorkerConfig{
		Concurrency: v.GetInt("CACHE_WORKER_CONCURRENCY"),
		Retries:     v.GetInt("CACHE_WORKER_RETRIES"),
		RetryDelay:  parseDuration(v.GetString("CACHE_WORKER_RETRY_DELAY"), time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	cfg.Docs = DocsConfig{
		Enabled: v.GetBool("ENABLE_DOCS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutorcrm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_TEMPLATE_CACHE", true)
	v.SetDefault("TEMPLATE_CACHE_TTL", "15m")
	v.SetDefault("AVAILABILITY_MAX_RANGE_DAYS", 92)
	v.SetDefault("DEFAULT_TIMEZONE", "UTC")

	v.SetDefault("ENABLE_BOOKINGS", true)
	v.SetDefault("CACHE_WORKER_CONCURRENCY", 1)
	v.SetDefault("CACHE_WORKER_RETRIES", 3)
	v.SetDefault("CACHE_WORKER_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("ENABLE_DOCS", true)
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
