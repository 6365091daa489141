package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	MinAccessTTL = 15 * time.Minute
	MaxAccessTTL = 30 * time.Minute
)

type Config struct {
	ServerAddr string `yaml:"server_addr"`
	LogLevel   string `yaml:"log_level"`

	AuthDatabaseURL string `yaml:"auth_database_url"`

	SnapshotDir       string `yaml:"snapshot_dir"`
	SnapshotFixedPath string `yaml:"snapshot_fixed_path"`

	JWTSecret        string        `yaml:"jwt_secret"`
	JWTRefreshSecret string        `yaml:"jwt_refresh_secret"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`
	BcryptCost       int           `yaml:"bcrypt_cost"`

	// RequireCurrentRefresh rejects refresh tokens that were rotated out by a later login.
	RequireCurrentRefresh bool `yaml:"require_current_refresh"`

	RedisURL string        `yaml:"redis_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	CORSOrigins []string `yaml:"cors_origins"`

	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

func Defaults() Config {
	return Config{
		ServerAddr:            ":8080",
		LogLevel:              "info",
		AuthDatabaseURL:       "./data/auth.db",
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       60 * time.Minute,
		RequireCurrentRefresh: true,
		CacheTTL:              5 * time.Minute,
		KafkaTopic:            "user_events",
		CORSOrigins:           []string{"*"},
		DefaultPageSize:       25,
		MaxPageSize:           100,
	}
}

// Load builds the configuration from defaults, the optional CONFIG_FILE yaml,
// the .env file and finally the process environment.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	cfg.ServerAddr = EnvDefault("SERVER_ADDR", cfg.ServerAddr)
	cfg.LogLevel = EnvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.AuthDatabaseURL = EnvDefault("AUTH_DATABASE_URL", cfg.AuthDatabaseURL)
	cfg.SnapshotDir = EnvDefault("SNAPSHOT_DIR", cfg.SnapshotDir)
	cfg.SnapshotFixedPath = EnvDefault("SNAPSHOT_FIXED_PATH", cfg.SnapshotFixedPath)
	cfg.JWTSecret = EnvDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTRefreshSecret = EnvDefault("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret)
	cfg.RedisURL = EnvDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaTopic = EnvDefault("KAFKA_TOPIC", cfg.KafkaTopic)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = CSV(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = CSV(v)
	}

	var err error
	if cfg.AccessTokenTTL, err = EnvDurationDefault("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.RefreshTokenTTL, err = EnvDurationDefault("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheTTL, err = EnvDurationDefault("CACHE_TTL", cfg.CacheTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequireCurrentRefresh, err = EnvBoolDefault("REQUIRE_CURRENT_REFRESH", cfg.RequireCurrentRefresh); err != nil {
		errs = append(errs, err)
	}

	cfg.BcryptCost = EnvIntDefault("BCRYPT_COST", cfg.BcryptCost)
	cfg.DefaultPageSize = EnvIntDefault("DEFAULT_PAGE_SIZE", cfg.DefaultPageSize)
	cfg.MaxPageSize = EnvIntDefault("MAX_PAGE_SIZE", cfg.MaxPageSize)

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []string

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		errs = append(errs, "JWT_REFRESH_SECRET is required")
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL < MinAccessTTL || c.AccessTokenTTL > MaxAccessTTL {
		errs = append(errs, fmt.Sprintf("ACCESS_TOKEN_TTL must be between %s and %s", MinAccessTTL, MaxAccessTTL))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, "REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.SnapshotDir == "" && c.SnapshotFixedPath == "" {
		errs = append(errs, "SNAPSHOT_DIR or SNAPSHOT_FIXED_PATH is required")
	}
	if c.AuthDatabaseURL == "" {
		errs = append(errs, "AUTH_DATABASE_URL is required")
	}
	if c.MaxPageSize < 1 {
		errs = append(errs, "MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, "DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func EnvBoolDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
