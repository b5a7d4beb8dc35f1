package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
)

const devJWTSecret = "campus-pulse-dev-secret-change-me"

// Config is the process configuration read from the environment
type Config struct {
	Port                 string        `validate:"required,numeric"`
	Mode                 string        `validate:"oneof=debug release test"`
	DBDriver             string        `validate:"oneof=sqlite3 postgres"`
	DataDir              string        `validate:"required_if=DBDriver sqlite3"`
	DatabaseURL          string        `validate:"required_if=DBDriver postgres"`
	JWTSecret            string        `validate:"required,min=16"`
	RedisAddr            string        `validate:"omitempty,hostname_port"`
	RedisPassword        string
	RedisDB              int           `validate:"gte=0,lte=15"`
	IPRateLimitPerMin    int           `validate:"gte=0"`
	AdminRateLimitPerMin int           `validate:"gte=0"`
	AnalyticsWorkers     int           `validate:"gte=1"`
	FitTimeout           time.Duration `validate:"gt=0"`
	PredictCacheTTL      time.Duration `validate:"gte=0"`
	SeedDemoData         bool
	SeedValue            int64
	LogLevel             string `validate:"oneof=debug info warn warning error"`
	AllowedOrigins       []string
}

var validate = validator.New()

// Load reads an optional .env file and the environment, then validates the result
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment")
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, errors.NewConfigurationError("Invalid configuration", err)
	}
	return cfg, nil
}

// FromEnv builds the configuration from the current environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Mode:          getEnvOrDefault("GIN_MODE", "debug"),
		DBDriver:      getEnvOrDefault("DB_DRIVER", "sqlite3"),
		DataDir:       getEnvOrDefault("DATA_DIR", "./data"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		LogLevel:      strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.RedisDB, err = getIntOrDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.IPRateLimitPerMin, err = getIntOrDefault("IP_RATE_LIMIT_PER_MIN", 120); err != nil {
		return nil, err
	}
	if cfg.AdminRateLimitPerMin, err = getIntOrDefault("ADMIN_RATE_LIMIT_PER_MIN", 10); err != nil {
		return nil, err
	}
	if cfg.AnalyticsWorkers, err = getIntOrDefault("ANALYTICS_WORKERS", runtime.GOMAXPROCS(0)); err != nil {
		return nil, err
	}
	if cfg.FitTimeout, err = getDurationOrDefault("ANALYTICS_FIT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PredictCacheTTL, err = getDurationOrDefault("PREDICT_MODEL_CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.SeedDemoData, err = getBoolOrDefault("SEED_DEMO_DATA", false); err != nil {
		return nil, err
	}
	seed, err := getIntOrDefault("SEED_VALUE", 42)
	if err != nil {
		return nil, err
	}
	cfg.SeedValue = int64(seed)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	// a development secret is only acceptable outside release mode
	if cfg.JWTSecret == "" && !cfg.IsRelease() {
		slog.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsRelease reports whether the server runs in gin release mode
func (c *Config) IsRelease() bool {
	return c.Mode == "release"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
