package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Quota     QuotaConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// RedisConfig holds Redis connection settings. Enabled=false runs the
// process on the in-memory fallback stores only (single-instance mode).
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address for the Redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings for the identity middleware
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	RateLimitEnabled  bool
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustedProxies    []string
}

// UnavailablePolicy decides what the quota tracker does when the counter
// backend cannot be reached
type UnavailablePolicy string

const (
	// PolicyFailOpen treats unreachable counters as zero usage and lets the
	// gated operation proceed
	PolicyFailOpen UnavailablePolicy = "open"

	// PolicyFailClosed rejects the gated operation while the backend is down
	PolicyFailClosed UnavailablePolicy = "closed"
)

// IsValid returns true if the policy is one of the known values
func (p UnavailablePolicy) IsValid() bool {
	return p == PolicyFailOpen || p == PolicyFailClosed
}

// QuotaTypeConfig declares one gated feature's allowance
type QuotaTypeConfig struct {
	Key         string `mapstructure:"key"`
	FreeLimit   int64  `mapstructure:"free_limit"`
	ResetPeriod string `mapstructure:"reset_period"`
}

// QuotaConfig holds quota tracking configuration
type QuotaConfig struct {
	SafetyBuffer      time.Duration     // Added to counter TTLs past period end
	UnavailablePolicy UnavailablePolicy // open or closed
	DefaultTimezone   string            // IANA name used when the caller sends none
	Types             []QuotaTypeConfig
}

// CacheConfig holds TTLs for the derived-artifact cache regions
type CacheConfig struct {
	AdviceTTL       time.Duration
	LeaderboardTTL  time.Duration
	LibraryTTL      time.Duration
	CleanupInterval time.Duration // In-memory fallback janitor interval
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // Use non-TLS connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with NUTRIFIT_ prefix (e.g., NUTRIFIT_REDIS_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("NUTRIFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
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
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Quota: QuotaConfig{
			SafetyBuffer:      v.GetDuration("quota.safety_buffer"),
			UnavailablePolicy: UnavailablePolicy(v.GetString("quota.unavailable_policy")),
			DefaultTimezone:   v.GetString("quota.default_timezone"),
		},
		Cache: CacheConfig{
			AdviceTTL:       v.GetDuration("cache.advice_ttl"),
			LeaderboardTTL:  v.GetDuration("cache.leaderboard_ttl"),
			LibraryTTL:      v.GetDuration("cache.library_ttl"),
			CleanupInterval: v.GetDuration("cache.cleanup_interval"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	if err := v.UnmarshalKey("quota.types", &cfg.Quota.Types); err != nil {
		return nil, fmt.Errorf("error parsing quota types: %w", err)
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
		cfg.App.Name = "nutrifit-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "nutrifit-backend"
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
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 20
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 40
	}
	if cfg.Quota.SafetyBuffer == 0 {
		cfg.Quota.SafetyBuffer = time.Hour
	}
	if cfg.Quota.UnavailablePolicy == "" {
		cfg.Quota.UnavailablePolicy = PolicyFailOpen
	}
	if cfg.Quota.DefaultTimezone == "" {
		cfg.Quota.DefaultTimezone = "UTC"
	}
	if len(cfg.Quota.Types) == 0 {
		cfg.Quota.Types = []QuotaTypeConfig{
			{Key: "ai_advice", FreeLimit: 3, ResetPeriod: "WEEKLY"},
			{Key: "pdf_export", FreeLimit: 10, ResetPeriod: "DAILY"},
			{Key: "recipe_match", FreeLimit: 50, ResetPeriod: "DAILY"},
		}
	}
	if cfg.Cache.AdviceTTL == 0 {
		cfg.Cache.AdviceTTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.LeaderboardTTL == 0 {
		cfg.Cache.LeaderboardTTL = 30 * time.Minute
	}
	if cfg.Cache.LibraryTTL == 0 {
		cfg.Cache.LibraryTTL = 10 * time.Minute
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "nutrifit-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !c.Quota.UnavailablePolicy.IsValid() {
		return fmt.Errorf("quota.unavailable_policy must be %q or %q, got %q",
			PolicyFailOpen, PolicyFailClosed, c.Quota.UnavailablePolicy)
	}
	if c.Quota.SafetyBuffer < 0 {
		return fmt.Errorf("quota.safety_buffer cannot be negative")
	}
	for _, t := range c.Quota.Types {
		if t.Key == "" {
			return fmt.Errorf("quota.types entries must have a key")
		}
		if t.FreeLimit < 0 {
			return fmt.Errorf("quota.types[%s].free_limit cannot be negative", t.Key)
		}
	}
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}
