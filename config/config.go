package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   string `yaml:"port"`
	AppEnv string `yaml:"app_env"`

	LogLevel string `yaml:"log_level"`

	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	JWTSecret              string        `yaml:"jwt_secret"`
	JWTExpire              time.Duration `yaml:"jwt_expire"`
	AdminRegistrationToken string        `yaml:"admin_registration_token"`

	RedisAddr     string        `yaml:"redis_addr"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl"`

	NATSUrl string `yaml:"nats_url"`

	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Export     ExportConfig     `yaml:"export"`

	RateLimitRPS     float64       `yaml:"rate_limit_rps"`
	RateLimitBurst   int           `yaml:"rate_limit_burst"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	CORSOrigins      []string      `yaml:"cors_origins"`
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Configured reports whether all Cloudinary credentials are present.
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type ExportConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Concurrency  int           `yaml:"concurrency"`
	StagingDir   string        `yaml:"staging_dir"`
	ZipLevel     int           `yaml:"zip_level"`
	FontDir      string        `yaml:"font_dir"`
	// MaxImagePixels bounds width*height of images decoded for compositing.
	MaxImagePixels int `yaml:"max_image_pixels"`
}

const (
	MinFetchTimeout = 10 * time.Second
	MaxFetchTimeout = 15 * time.Second
)

// Load reads optional .env files and an optional YAML file (CONFIG_PATH), then
// applies environment overrides. Environment always wins.
func Load() (*Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:          "8080",
		AppEnv:        "production",
		LogLevel:      "info",
		MongoDB:       "memesdb",
		JWTExpire:     30 * 24 * time.Hour,
		StatsCacheTTL: time.Minute,
		Cloudinary: CloudinaryConfig{
			BaseURL: "https://api.cloudinary.com",
		},
		Export: ExportConfig{
			FetchTimeout:   MaxFetchTimeout,
			Concurrency:    8,
			ZipLevel:       9,
			MaxImagePixels: 50_000_000,
		},
		RateLimitRPS:     1,
		RateLimitBurst:   5,
		SnapshotInterval: 24 * time.Hour,
		CORSOrigins:      []string{"*"},
	}
}

func overrideFromEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getEnv("MONGO_DB", cfg.MongoDB)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpire = getExpireEnv("JWT_EXPIRE", cfg.JWTExpire)
	cfg.AdminRegistrationToken = getEnv("ADMIN_REGISTRATION_TOKEN", cfg.AdminRegistrationToken)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.StatsCacheTTL = getDurationEnv("STATS_CACHE_TTL", cfg.StatsCacheTTL)
	cfg.NATSUrl = getEnv("NATS_URL", cfg.NATSUrl)
	cfg.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	cfg.Export.FetchTimeout = getDurationEnv("EXPORT_FETCH_TIMEOUT", cfg.Export.FetchTimeout)
	cfg.Export.Concurrency = getIntEnv("EXPORT_CONCURRENCY", cfg.Export.Concurrency)
	cfg.Export.StagingDir = getEnv("EXPORT_STAGING_DIR", cfg.Export.StagingDir)
	cfg.Export.ZipLevel = getIntEnv("EXPORT_ZIP_LEVEL", cfg.Export.ZipLevel)
	cfg.Export.FontDir = getEnv("EXPORT_FONT_DIR", cfg.Export.FontDir)
	cfg.Export.MaxImagePixels = getIntEnv("EXPORT_MAX_IMAGE_PIXELS", cfg.Export.MaxImagePixels)
	cfg.RateLimitRPS = getFloatEnv("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.SnapshotInterval = getDurationEnv("SNAPSHOT_INTERVAL", cfg.SnapshotInterval)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Export.FetchTimeout < MinFetchTimeout || c.Export.FetchTimeout > MaxFetchTimeout {
		return fmt.Errorf("export fetch timeout must be between %v and %v, got %v",
			MinFetchTimeout, MaxFetchTimeout, c.Export.FetchTimeout)
	}
	if c.Export.Concurrency < 1 {
		return errors.New("export concurrency must be at least 1")
	}
	if c.Export.MaxImagePixels < 1 {
		return errors.New("export max image pixels must be at least 1")
	}
	if c.Export.ZipLevel < -1 || c.Export.ZipLevel > 9 {
		return fmt.Errorf("export zip level must be between -1 and 9, got %d", c.Export.ZipLevel)
	}
	return nil
}

// Development reports whether the service runs outside production.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getExpireEnv accepts Go durations and day counts ("30d", "7").
func getExpireEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := ParseExpire(value); err == nil {
		return d
	}
	return defaultValue
}

// ParseExpire parses "30d", "30" (days) or any time.ParseDuration string.
func ParseExpire(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	days := strings.TrimSuffix(value, "d")
	if n, err := strconv.Atoi(days); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("expiry must be positive: %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse expiry %q: %w", value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
