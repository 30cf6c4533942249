package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "dev-secret"

type Config struct {
	Port        string
	DBUrl       string
	CORSOrigins []string
	JWTSecret   string
	Production  bool
	// PublicAPIURL overrides the host used when building upload URLs.
	PublicAPIURL string
	// SMTP Configuration. Empty host or from address selects the test inbox.
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	// Signup
	DemoUserEmail          string
	DisableOTPVerification bool
	// Upload storage
	StorageDriver     string // "local" or "s3"
	UploadDir         string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3PublicURL       string
	// Redis (endorsement count cache)
	RedisURL      string
	RedisPassword string
	// Logging
	LogLevel string
	LogDev   bool
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; the parent directory is tried for monorepo checkouts.
	_ = godotenv.Load()
	if os.Getenv("DATABASE_URL") == "" {
		_ = godotenv.Load(filepath.Join("..", ".env"))
	}

	env := strings.ToLower(getEnv("APP_ENV", getEnv("GO_ENV", "")))

	cfg := &Config{
		Port:         getEnv("PORT", "4000"),
		DBUrl:        getEnv("DATABASE_URL", ""),
		CORSOrigins:  splitList(getEnv("CORS_ORIGIN", getEnv("FRONTEND_URL", "*"))),
		JWTSecret:    getEnv("JWT_SECRET", DefaultJWTSecret),
		Production:   env == "production" || os.Getenv("GIN_MODE") == "release",
		PublicAPIURL: strings.TrimRight(getEnv("PUBLIC_API_URL", getEnv("RENDER_EXTERNAL_URL", "")), "/"),
		// SMTP Configuration
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", getEnv("SMTP_PASSWORD", "")),
		SMTPFrom:     getEnv("SMTP_FROM", getEnv("EMAIL_FROM", "")),
		// Signup
		DemoUserEmail:          strings.TrimSpace(strings.ToLower(getEnv("DEMO_USER_EMAIL", ""))),
		DisableOTPVerification: getEnvBool("DISABLE_OTP_VERIFICATION", false),
		// Upload storage
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:        strings.TrimRight(getEnv("S3_ENDPOINT", ""), "/"),
		S3PublicURL:       strings.TrimRight(getEnv("S3_PUBLIC_URL", ""), "/"),
		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDev:   getEnvBool("LOG_DEV", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}

	return cfg, nil
}

// Validate rejects configurations that must never reach a running server.
func (c *Config) Validate() error {
	if c.Production && c.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.StorageDriver != "local" && c.StorageDriver != "s3" {
		return errors.New("STORAGE_DRIVER must be either local or s3")
	}
	if c.StorageDriver == "s3" && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}
	return nil
}

// MailConfigured reports whether a real SMTP relay is set up.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// AllowAllOrigins is true when CORS_ORIGIN contains "*".
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.CORSOrigins) == 0
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
