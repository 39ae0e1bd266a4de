package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Cache     CacheConfig
	Freshness FreshnessConfig
	Reorder   ReorderConfig
	Payout    PayoutConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	PrometheusEnabled bool // Expose /metrics with the stock alert collector
}

// CacheConfig holds recipe definition cache settings
type CacheConfig struct {
	Capacity int
	TTL      time.Duration
}

// FreshnessConfig holds the freshness classifier thresholds
type FreshnessConfig struct {
	ExpiryCritical time.Duration
	ExpiryWarning  time.Duration
	AgeWarning     time.Duration
	AgeCritical    time.Duration
	AgeExpired     time.Duration
}

// ReorderConfig holds the stock status and reorder constants
type ReorderConfig struct {
	ExpiryWarningWindow time.Duration
	NearExpiryWindow    time.Duration
	Multiplier          float64
	MinimumOrderFloor   float64
	NearExpiryScale     float64
	UrgentMinimumFloor  float64
	UsageProxyDays      float64
}

// PayoutConfig holds farmer payout settings
type PayoutConfig struct {
	ReferencePrefix string
}

// Load loads configuration from an optional .env file, config.toml and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with DAIRY_ prefix (e.g., DAIRY_DATABASE_PASSWORD)
// 2. .env (never overrides variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DAIRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			PrometheusEnabled: v.GetBool("telemetry.prometheus_enabled"),
		},
		Cache: CacheConfig{
			Capacity: v.GetInt("cache.capacity"),
			TTL:      v.GetDuration("cache.ttl"),
		},
		Freshness: FreshnessConfig{
			ExpiryCritical: v.GetDuration("freshness.expiry_critical"),
			ExpiryWarning:  v.GetDuration("freshness.expiry_warning"),
			AgeWarning:     v.GetDuration("freshness.age_warning"),
			AgeCritical:    v.GetDuration("freshness.age_critical"),
			AgeExpired:     v.GetDuration("freshness.age_expired"),
		},
		Reorder: ReorderConfig{
			ExpiryWarningWindow: v.GetDuration("reorder.expiry_warning_window"),
			NearExpiryWindow:    v.GetDuration("reorder.near_expiry_window"),
			Multiplier:          v.GetFloat64("reorder.multiplier"),
			MinimumOrderFloor:   v.GetFloat64("reorder.minimum_order_floor"),
			NearExpiryScale:     v.GetFloat64("reorder.near_expiry_scale"),
			UrgentMinimumFloor:  v.GetFloat64("reorder.urgent_minimum_floor"),
			UsageProxyDays:      v.GetFloat64("reorder.usage_proxy_days"),
		},
		Payout: PayoutConfig{
			ReferencePrefix: v.GetString("payout.reference_prefix"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dairy-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dairy"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	// Empty CORS origins means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "dairy-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 256
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}

	fd := inventory.DefaultFreshnessThresholds()
	if cfg.Freshness.ExpiryCritical == 0 {
		cfg.Freshness.ExpiryCritical = fd.ExpiryCritical
	}
	if cfg.Freshness.ExpiryWarning == 0 {
		cfg.Freshness.ExpiryWarning = fd.ExpiryWarning
	}
	if cfg.Freshness.AgeWarning == 0 {
		cfg.Freshness.AgeWarning = fd.AgeWarning
	}
	if cfg.Freshness.AgeCritical == 0 {
		cfg.Freshness.AgeCritical = fd.AgeCritical
	}
	if cfg.Freshness.AgeExpired == 0 {
		cfg.Freshness.AgeExpired = fd.AgeExpired
	}

	rd := inventory.DefaultReorderPolicy()
	if cfg.Reorder.ExpiryWarningWindow == 0 {
		cfg.Reorder.ExpiryWarningWindow = rd.ExpiryWarningWindow
	}
	if cfg.Reorder.NearExpiryWindow == 0 {
		cfg.Reorder.NearExpiryWindow = rd.NearExpiryWindow
	}
	if cfg.Reorder.Multiplier == 0 {
		cfg.Reorder.Multiplier = rd.ReorderMultiplier.InexactFloat64()
	}
	if cfg.Reorder.MinimumOrderFloor == 0 {
		cfg.Reorder.MinimumOrderFloor = rd.MinimumOrderFloor.InexactFloat64()
	}
	if cfg.Reorder.NearExpiryScale == 0 {
		cfg.Reorder.NearExpiryScale = rd.NearExpiryScale.InexactFloat64()
	}
	if cfg.Reorder.UrgentMinimumFloor == 0 {
		cfg.Reorder.UrgentMinimumFloor = rd.UrgentMinimumFloor.InexactFloat64()
	}
	if cfg.Reorder.UsageProxyDays == 0 {
		cfg.Reorder.UsageProxyDays = rd.UsageProxyDays.InexactFloat64()
	}
	if cfg.Payout.ReferencePrefix == "" {
		cfg.Payout.ReferencePrefix = "PAY"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity cannot be negative")
	}
	if err := c.Freshness.Thresholds().Validate(); err != nil {
		return fmt.Errorf("freshness: %w", err)
	}
	if err := c.Reorder.Policy().Validate(); err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Thresholds converts the section into classifier thresholds
func (f FreshnessConfig) Thresholds() inventory.FreshnessThresholds {
	return inventory.FreshnessThresholds{
		ExpiryCritical: f.ExpiryCritical,
		ExpiryWarning:  f.ExpiryWarning,
		AgeWarning:     f.AgeWarning,
		AgeCritical:    f.AgeCritical,
		AgeExpired:     f.AgeExpired,
	}
}

// Policy converts the section into a reorder policy
func (r ReorderConfig) Policy() inventory.ReorderPolicy {
	return inventory.ReorderPolicy{
		ExpiryWarningWindow: r.ExpiryWarningWindow,
		NearExpiryWindow:    r.NearExpiryWindow,
		ReorderMultiplier:   decimal.NewFromFloat(r.Multiplier),
		MinimumOrderFloor:   decimal.NewFromFloat(r.MinimumOrderFloor),
		NearExpiryScale:     decimal.NewFromFloat(r.NearExpiryScale),
		UrgentMinimumFloor:  decimal.NewFromFloat(r.UrgentMinimumFloor),
		UsageProxyDays:      decimal.NewFromFloat(r.UsageProxyDays),
	}
}
