package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	PaymentSecret    string `mapstructure:"PAYMENT_SECRET"`
	PaymentDevBypass bool   `mapstructure:"PAYMENT_DEV_BYPASS"`

	HoldTTLMinutes      int `mapstructure:"HOLD_TTL_MINUTES"`
	ExpireSweepSeconds  int `mapstructure:"EXPIRE_SWEEP_SECONDS"`
	ReleaseSweepSeconds int `mapstructure:"RELEASE_SWEEP_SECONDS"`
	SlotCacheTTLSeconds int `mapstructure:"SLOT_CACHE_TTL_SECONDS"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("HOLD_TTL_MINUTES", 10)
	v.SetDefault("EXPIRE_SWEEP_SECONDS", 60)
	v.SetDefault("RELEASE_SWEEP_SECONDS", 120)
	v.SetDefault("SLOT_CACHE_TTL_SECONDS", 30)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("PAYMENT_SECRET")
	v.BindEnv("PAYMENT_DEV_BYPASS")
	v.BindEnv("HOLD_TTL_MINUTES")
	v.BindEnv("EXPIRE_SWEEP_SECONDS")
	v.BindEnv("RELEASE_SWEEP_SECONDS")
	v.BindEnv("SLOT_CACHE_TTL_SECONDS")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: PAYMENT_DEV_BYPASS may skip payment signature verification.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HoldTTL is the lifetime of a HOLD booking before it may be swept.
func (c *Config) HoldTTL() time.Duration {
	return time.Duration(c.HoldTTLMinutes) * time.Minute
}

// ExpireSweepInterval is the period between expire-sweep runs.
func (c *Config) ExpireSweepInterval() time.Duration {
	return time.Duration(c.ExpireSweepSeconds) * time.Second
}

// ReleaseSweepInterval is the period between release-sweep runs.
func (c *Config) ReleaseSweepInterval() time.Duration {
	return time.Duration(c.ReleaseSweepSeconds) * time.Second
}

// SlotCacheTTL bounds how stale a cached slot listing may be.
func (c *Config) SlotCacheTTL() time.Duration {
	return time.Duration(c.SlotCacheTTLSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. In production the
// JWT and payment secrets are required; PAYMENT_DEV_BYPASS must be off.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.PaymentSecret == "" {
			return fmt.Errorf("PAYMENT_SECRET is required in production")
		}
		if c.PaymentDevBypass {
			return fmt.Errorf("PAYMENT_DEV_BYPASS must not be enabled in production")
		}
	}
	if c.HoldTTLMinutes <= 0 {
		return fmt.Errorf("HOLD_TTL_MINUTES must be positive, got %d", c.HoldTTLMinutes)
	}
	if c.ExpireSweepSeconds <= 0 || c.ReleaseSweepSeconds <= 0 {
		return fmt.Errorf("sweep intervals must be positive")
	}
	return nil
}
