package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	RunMode string // set via flag, not env

	// Store
	StoreDriver string
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Admin auth
	JwtSecret         string
	JwtTTL            time.Duration
	CaptchaTokenTTL   time.Duration
	SeedAdminEmail    string
	SeedAdminPassword string

	// Server
	ApiPort        string
	ServiceApiPort string
	SiteBaseURL    string
	CorsOrigins    []string

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email
	SmtpHost         string
	SmtpPort         int
	SmtpUsername     string
	SmtpPassword     string
	SmtpFromAddress  string
	AdminNotifyEmail string
	EmailLogFile     string
	MockEmail        bool

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int
	UploadURLTTL       time.Duration

	AppName string

	// Rate limiting for public form submissions
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load reads configuration from the environment, after loading .env when
// present. runMode comes from the command line.
func Load(runMode string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{RunMode: runMode}
	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}
	getInt := func(key, defaultValue string) (int, error) {
		n, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return n, nil
	}
	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		n, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(n) * time.Second, nil
	}

	cfg.StoreDriver = getEnv("STORE_DRIVER", StoreMongo)
	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI, err = getRequiredEnv("MONGO_URI"); err != nil {
			return nil, err
		}
	case StoreMemory:
		cfg.MongoURI = getEnv("MONGO_URI", "")
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, StoreMongo, StoreMemory)
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "smartliving")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	if cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "43200"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}
	cfg.SeedAdminEmail = getEnv("SEED_ADMIN_EMAIL", "")
	cfg.SeedAdminPassword = getEnv("SEED_ADMIN_PASSWORD", "")

	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.SiteBaseURL = strings.TrimRight(getEnv("SITE_BASE_URL", "http://localhost:5173"), "/")
	cfg.CorsOrigins = splitList(getEnv("CORS_ORIGINS", cfg.SiteBaseURL))

	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@smartliving.example.com")
	cfg.AdminNotifyEmail = getEnv("ADMIN_NOTIFY_EMAIL", "")
	cfg.EmailLogFile = getEnv("EMAIL_LOG_FILE", "")
	if cfg.MockEmail, err = strconv.ParseBool(getEnv("MOCK_EMAIL", "false")); err != nil {
		return nil, fmt.Errorf("invalid MOCK_EMAIL: %w", err)
	}

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = strings.TrimRight(getEnv("IMAGE_BASE_S3_URL", ""), "/")
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.UploadURLTTL, err = getSeconds("UPLOAD_URL_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}

	cfg.AppName = getEnv("APP_NAME", "Smart Living")

	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "1"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "8"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SiteURL joins a site path onto SiteBaseURL.
func (c *Config) SiteURL(path string) string {
	return c.SiteBaseURL + path
}
