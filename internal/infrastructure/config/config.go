package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Event    EventConfig
	Cache    CacheConfig
	Breaker  BreakerConfig
	Product  ProductServiceConfig
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
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EventConfig holds event dispatch and consumption configuration
type EventConfig struct {
	DispatcherEnabled bool
	Partitions        int
	BatchSize         int
	PollInterval      time.Duration
	ConflictRetries   int
	ConflictBackoff   time.Duration
	IdempotencyTTL    time.Duration
	CleanupEnabled    bool
	CleanupRetention  time.Duration
	CleanupInterval   time.Duration
}

// CacheConfig holds per-namespace cache TTLs
type CacheConfig struct {
	Enabled            bool
	StockItemTTL       time.Duration
	LocationTTL        time.Duration
	StockAllocationTTL time.Duration
}

// BreakerConfig holds circuit breaker settings for outbound calls
type BreakerConfig struct {
	WindowSize       time.Duration
	FailureThreshold float64
	MinimumCalls     int
	OpenDuration     time.Duration
	HalfOpenProbes   int
	MaxRetries       int
	RetryBackoff     time.Duration
}

// ProductServiceConfig points at the product service consumed for product
// code resolution.
type ProductServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load loads configuration from a yaml file and environment variables.
// Priority (highest to lowest): env vars with WMS_ prefix, config.yaml,
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// missing file is fine, defaults and env vars apply
	}

	v.SetEnvPrefix("WMS")
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
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
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
		Event: EventConfig{
			DispatcherEnabled: v.GetBool("event.dispatcher_enabled"),
			Partitions:        v.GetInt("event.partitions"),
			BatchSize:         v.GetInt("event.batch_size"),
			PollInterval:      v.GetDuration("event.poll_interval"),
			ConflictRetries:   v.GetInt("event.conflict_retries"),
			ConflictBackoff:   v.GetDuration("event.conflict_backoff"),
			IdempotencyTTL:    v.GetDuration("event.idempotency_ttl"),
			CleanupEnabled:    v.GetBool("event.cleanup_enabled"),
			CleanupRetention:  v.GetDuration("event.cleanup_retention"),
			CleanupInterval:   v.GetDuration("event.cleanup_interval"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("cache.enabled"),
			StockItemTTL:       v.GetDuration("cache.stock_item_ttl"),
			LocationTTL:        v.GetDuration("cache.location_ttl"),
			StockAllocationTTL: v.GetDuration("cache.stock_allocation_ttl"),
		},
		Breaker: BreakerConfig{
			WindowSize:       v.GetDuration("breaker.window_size"),
			FailureThreshold: v.GetFloat64("breaker.failure_threshold"),
			MinimumCalls:     v.GetInt("breaker.minimum_calls"),
			OpenDuration:     v.GetDuration("breaker.open_duration"),
			HalfOpenProbes:   v.GetInt("breaker.half_open_probes"),
			MaxRetries:       v.GetInt("breaker.max_retries"),
			RetryBackoff:     v.GetDuration("breaker.retry_backoff"),
		},
		Product: ProductServiceConfig{
			BaseURL: v.GetString("product.base_url"),
			Timeout: v.GetDuration("product.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "wms-backend"
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
		cfg.Database.User = "wms"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "wms"
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
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations/tenant"
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
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Event.Partitions == 0 {
		cfg.Event.Partitions = 8
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 2 * time.Second
	}
	if cfg.Event.ConflictRetries == 0 {
		cfg.Event.ConflictRetries = 3
	}
	if cfg.Event.ConflictBackoff == 0 {
		cfg.Event.ConflictBackoff = 100 * time.Millisecond
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 7 * 24 * time.Hour
	}
	if cfg.Event.CleanupInterval == 0 {
		cfg.Event.CleanupInterval = time.Hour
	}

	if cfg.Cache.StockItemTTL == 0 {
		cfg.Cache.StockItemTTL = 5 * time.Minute
	}
	if cfg.Cache.LocationTTL == 0 {
		cfg.Cache.LocationTTL = 15 * time.Minute
	}
	if cfg.Cache.StockAllocationTTL == 0 {
		cfg.Cache.StockAllocationTTL = 2 * time.Minute
	}

	if cfg.Breaker.WindowSize == 0 {
		cfg.Breaker.WindowSize = 30 * time.Second
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 0.5
	}
	if cfg.Breaker.MinimumCalls == 0 {
		cfg.Breaker.MinimumCalls = 10
	}
	if cfg.Breaker.OpenDuration == 0 {
		cfg.Breaker.OpenDuration = 15 * time.Second
	}
	if cfg.Breaker.HalfOpenProbes == 0 {
		cfg.Breaker.HalfOpenProbes = 3
	}
	if cfg.Breaker.MaxRetries == 0 {
		cfg.Breaker.MaxRetries = 2
	}
	if cfg.Breaker.RetryBackoff == 0 {
		cfg.Breaker.RetryBackoff = 200 * time.Millisecond
	}

	if cfg.Product.BaseURL == "" {
		cfg.Product.BaseURL = "http://localhost:8081"
	}
	if cfg.Product.Timeout == 0 {
		cfg.Product.Timeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Event.Partitions < 1 {
		return fmt.Errorf("event.partitions must be at least 1")
	}
	if c.Breaker.FailureThreshold <= 0 || c.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("breaker.failure_threshold must be in (0, 1]")
	}
	if _, err := url.Parse(c.Product.BaseURL); err != nil {
		return fmt.Errorf("product.base_url is not a valid URL: %w", err)
	}
	return nil
}

// DSN returns the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the postgres connection URL used by golang-migrate
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.DBName, c.SSLMode)
}

// Addr returns the redis address in host:port form
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
