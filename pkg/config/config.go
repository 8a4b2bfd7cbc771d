package config

import (
	"errors"
	"fmt"
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

	Timezone string

	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Reconcile ReconcileConfig
	Batch     BatchConfig
	QR        QRConfig
	Tracker   TrackerConfig
	Tenants   []TenantConfig
}

// TenantConfig describes one isolated site: its device API and its storage.
type TenantConfig struct {
	ID            string
	Name          string
	DeviceAPIBase string
	DeviceAPIKey  string
	DeviceAPITO   time.Duration
	DatabaseDSN   string
	PersistStatus []string
	DedupWindow   time.Duration
	MaxOpenConns  int
	MaxIdleConns  int
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

// ReconcileConfig holds the timing policy shared by batch and tracker runs.
type ReconcileConfig struct {
	CutoffHours    int
	Grace          time.Duration
	EarlyThreshold time.Duration
}

// BatchConfig tunes the multi-tenant batch trigger.
type BatchConfig struct {
	Workers      int
	TenantRetry  int
	RetryBackoff time.Duration
	CronSchedule string
}

// QRConfig governs the QR presence channel.
type QRConfig struct {
	SigningSecret string
	TokenTTL      time.Duration
}

// TrackerConfig tunes the on-demand query path.
type TrackerConfig struct {
	CacheTTL time.Duration
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
	cfg.Timezone = v.GetString("TIMEZONE")

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

	cfg.Reconcile = ReconcileConfig{
		CutoffHours:    v.GetInt("RECONCILE_CUTOFF_HOURS"),
		Grace:          parseDuration(v.GetString("RECONCILE_GRACE"), 30*time.Minute),
		EarlyThreshold: parseDuration(v.GetString("RECONCILE_EARLY_THRESHOLD"), 15*time.Minute),
	}

	cfg.Batch = BatchConfig{
		Workers:      v.GetInt("BATCH_WORKERS"),
		TenantRetry:  v.GetInt("BATCH_TENANT_RETRIES"),
		RetryBackoff: parseDuration(v.GetString("BATCH_RETRY_BACKOFF"), 2*time.Second),
		CronSchedule: v.GetString("BATCH_CRON_SCHEDULE"),
	}

	cfg.QR = QRConfig{
		SigningSecret: v.GetString("QR_SIGNING_SECRET"),
		TokenTTL:      parseDuration(v.GetString("QR_TOKEN_TTL"), 15*time.Minute),
	}

	cfg.Tracker = TrackerConfig{
		CacheTTL: parseDuration(v.GetString("TRACKER_CACHE_TTL"), time.Minute),
	}

	cfg.Tenants = loadTenants(v)

	return cfg, nil
}

// loadTenants reads the tenant registry. TENANTS lists tenant ids; each id has
// its own TENANT_<ID>_* keys. A tenant with an empty device API base or DSN is
// still listed so that the directory can report it as unavailable explicitly.
func loadTenants(v *viper.Viper) []TenantConfig {
	ids := splitAndTrim(v.GetString("TENANTS"))
	tenants := make([]TenantConfig, 0, len(ids))
	for _, id := range ids {
		key := strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
		prefix := fmt.Sprintf("TENANT_%s_", key)

		persist := splitAndTrim(v.GetString(prefix + "PERSIST_STATUSES"))
		if len(persist) == 0 {
			persist = []string{"absent", "late"}
		}

		tenants = append(tenants, TenantConfig{
			ID:            id,
			Name:          v.GetString(prefix + "NAME"),
			DeviceAPIBase: v.GetString(prefix + "DEVICE_API_BASE"),
			DeviceAPIKey:  v.GetString(prefix + "DEVICE_API_KEY"),
			DeviceAPITO:   parseDuration(v.GetString(prefix+"DEVICE_API_TIMEOUT"), 10*time.Second),
			DatabaseDSN:   v.GetString(prefix + "DATABASE_DSN"),
			PersistStatus: persist,
			DedupWindow:   parseDuration(v.GetString(prefix+"DEDUP_WINDOW"), time.Minute),
			MaxOpenConns:  v.GetInt(prefix + "DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  v.GetInt(prefix + "DB_MAX_IDLE_CONNS"),
		})
	}
	return tenants
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Africa/Casablanca")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RECONCILE_CUTOFF_HOURS", 1)
	v.SetDefault("RECONCILE_GRACE", "30m")
	v.SetDefault("RECONCILE_EARLY_THRESHOLD", "15m")

	v.SetDefault("BATCH_WORKERS", 4)
	v.SetDefault("BATCH_TENANT_RETRIES", 3)
	v.SetDefault("BATCH_RETRY_BACKOFF", "2s")
	v.SetDefault("BATCH_CRON_SCHEDULE", "")

	v.SetDefault("QR_SIGNING_SECRET", "dev_qr_secret")
	v.SetDefault("QR_TOKEN_TTL", "15m")
	v.SetDefault("TRACKER_CACHE_TTL", "1m")

	v.SetDefault("TENANTS", "")
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
