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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Booking   BookingConfig
	Cache     CacheConfig
	Payments  PaymentsConfig
	Receipts  ReceiptsConfig
	Realtime  RealtimeConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig drives availability expansion and the selection flow.
type BookingConfig struct {
	Timezone       string
	HorizonDays    int
	MaxHorizonDays int
	EventsActivity string
	EventsMonths   int
	SelectionTTL   time.Duration
	LoginPath      string
}

// CacheConfig governs caching of schedule templates.
type CacheConfig struct {
	Enabled     bool
	TemplateTTL time.Duration
}

// PaymentsConfig configures the hosted checkout gateway.
type PaymentsConfig struct {
	ServerKey     string
	Production    bool
	Currency      string
	PendingExpiry time.Duration
}

// ReceiptsConfig controls PDF receipt storage and download links.
type ReceiptsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	RetentionPeriod time.Duration
}

// RealtimeConfig tunes change-notification fan-out.
type RealtimeConfig struct {
	BufferSize     int
	RedisRelay     bool
	PublishWorkers int
	PublishRetries int
}

// JobsConfig holds cron specs for periodic maintenance.
type JobsConfig struct {
	Enabled             bool
	ExpirePaymentsSpec  string
	PurgeReceiptsSpec   string
	RefreshTemplateSpec string
}

// RateLimitConfig throttles public write endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// SeedConfig points at an optional YAML file of schedule templates loaded at boot.
type SeedConfig struct {
	SchedulesFile string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		Timezone:       v.GetString("BOOKING_TIMEZONE"),
		HorizonDays:    positiveOr(v.GetInt("BOOKING_HORIZON_DAYS"), 7),
		MaxHorizonDays: positiveOr(v.GetInt("BOOKING_MAX_HORIZON_DAYS"), 120),
		EventsActivity: v.GetString("EVENTS_ACTIVITY"),
		EventsMonths:   positiveOr(v.GetInt("EVENTS_MONTHS"), 3),
		SelectionTTL:   parseDuration(v.GetString("BOOKING_SELECTION_TTL"), 30*time.Minute),
		LoginPath:      v.GetString("BOOKING_LOGIN_PATH"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_TEMPLATE_CACHE"),
		TemplateTTL: parseDuration(v.GetString("TEMPLATE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Payments = PaymentsConfig{
		ServerKey:     v.GetString("MIDTRANS_SERVER_KEY"),
		Production:    v.GetBool("MIDTRANS_PRODUCTION"),
		Currency:      v.GetString("PAYMENTS_CURRENCY"),
		PendingExpiry: parseDuration(v.GetString("PAYMENTS_PENDING_EXPIRY"), 24*time.Hour),
	}

	cfg.Receipts = ReceiptsConfig{
		StorageDir:      v.GetString("RECEIPTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), 15*time.Minute),
		RetentionPeriod: parseDuration(v.GetString("RECEIPTS_RETENTION"), 7*24*time.Hour),
	}

	cfg.Realtime = RealtimeConfig{
		BufferSize:     positiveOr(v.GetInt("REALTIME_BUFFER_SIZE"), 32),
		RedisRelay:     v.GetBool("REALTIME_REDIS_RELAY"),
		PublishWorkers: positiveOr(v.GetInt("REALTIME_PUBLISH_WORKERS"), 2),
		PublishRetries: positiveOr(v.GetInt("REALTIME_PUBLISH_RETRIES"), 3),
	}

	cfg.Jobs = JobsConfig{
		Enabled:             v.GetBool("ENABLE_JOBS"),
		ExpirePaymentsSpec:  v.GetString("JOBS_EXPIRE_PAYMENTS_SPEC"),
		PurgeReceiptsSpec:   v.GetString("JOBS_PURGE_RECEIPTS_SPEC"),
		RefreshTemplateSpec: v.GetString("JOBS_REFRESH_TEMPLATES_SPEC"),
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerMinute: positiveOr(v.GetInt("RATE_LIMIT_PER_MINUTE"), 30),
		Burst:             positiveOr(v.GetInt("RATE_LIMIT_BURST"), 5),
	}

	cfg.Seed = SeedConfig{SchedulesFile: v.GetString("SEED_SCHEDULES_FILE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aquacentre")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "aquacentre-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_TIMEZONE", "Europe/Paris")
	v.SetDefault("BOOKING_HORIZON_DAYS", 7)
	v.SetDefault("BOOKING_MAX_HORIZON_DAYS", 120)
	v.SetDefault("EVENTS_ACTIVITY", "EVENEMENTS")
	v.SetDefault("EVENTS_MONTHS", 3)
	v.SetDefault("BOOKING_SELECTION_TTL", "30m")
	v.SetDefault("BOOKING_LOGIN_PATH", "/login")

	v.SetDefault("ENABLE_TEMPLATE_CACHE", true)
	v.SetDefault("TEMPLATE_CACHE_TTL", "10m")

	v.SetDefault("MIDTRANS_SERVER_KEY", "")
	v.SetDefault("MIDTRANS_PRODUCTION", false)
	v.SetDefault("PAYMENTS_CURRENCY", "EUR")
	v.SetDefault("PAYMENTS_PENDING_EXPIRY", "24h")

	v.SetDefault("RECEIPTS_STORAGE_DIR", "./receipts")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "15m")
	v.SetDefault("RECEIPTS_RETENTION", "168h")

	v.SetDefault("REALTIME_BUFFER_SIZE", 32)
	v.SetDefault("REALTIME_REDIS_RELAY", false)
	v.SetDefault("REALTIME_PUBLISH_WORKERS", 2)
	v.SetDefault("REALTIME_PUBLISH_RETRIES", 3)

	v.SetDefault("ENABLE_JOBS", true)
	v.SetDefault("JOBS_EXPIRE_PAYMENTS_SPEC", "@every 15m")
	v.SetDefault("JOBS_PURGE_RECEIPTS_SPEC", "@daily")
	v.SetDefault("JOBS_REFRESH_TEMPLATES_SPEC", "")

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	v.SetDefault("SEED_SCHEDULES_FILE", "")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
