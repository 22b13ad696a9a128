// Package config handles configuration loading for the permit service.
package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Storage providers for uploaded document bytes.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// minSecretLength matches the HS256 key size.
const minSecretLength = 32

// Config holds all configuration for the permit service.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	AllowedOrigins []string
	Cookie         CookieConfig

	ContractorWriteRole string

	StorageProvider    string
	StorageLocalDir    string
	GCSBucket          string
	GCSCredentialsJSON string
	MaxUploadBytes     int64

	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminName     string

	SwaggerHost string
}

// CookieConfig controls the auth cookies set on login.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret, err := GetEnvRequired("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}

	cfg := &Config{
		Port:        GetEnv("PORT", "8080"),
		Environment: GetEnv("ENVIRONMENT", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),

		StoreDriver: GetEnv("STORE_DRIVER", StoreMemory),
		DBHost:      GetEnv("DB_HOST", ""),
		DBPort:      GetEnv("DB_PORT", ""),
		DBUser:      GetEnv("DB_USER", ""),
		DBPassword:  GetEnv("DB_PASSWORD", ""),
		DBName:      GetEnv("DB_NAME", ""),
		DBSSLMode:   GetEnv("DB_SSLMODE", "disable"),

		RedisHost:     GetEnv("REDIS_HOST", ""),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),

		JWTSecret:        secret,
		JWTAccessExpiry:  parseDuration(GetEnv("JWT_ACCESS_EXPIRY", "24h"), 24*time.Hour),
		JWTRefreshExpiry: parseDuration(GetEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AllowedOrigins: GetEnvList("ALLOWED_ORIGINS", nil),
		Cookie: CookieConfig{
			Path:     "/",
			Domain:   GetEnv("COOKIE_DOMAIN", ""),
			Secure:   GetEnvBool("COOKIE_SECURE", false),
			SameSite: http.SameSiteLaxMode,
		},

		ContractorWriteRole: GetEnv("CONTRACTOR_WRITE_ROLE", "Admin"),

		StorageProvider:    GetEnv("STORAGE_PROVIDER", StorageLocal),
		StorageLocalDir:    GetEnv("STORAGE_LOCAL_DIR", "uploads"),
		GCSBucket:          GetEnv("GCS_BUCKET", ""),
		GCSCredentialsJSON: GetEnv("GCS_CREDENTIALS_JSON", ""),
		MaxUploadBytes:     GetEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		SeedAdminEmail:    GetEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: GetEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:     GetEnv("SEED_ADMIN_NAME", "Administrator"),

		SwaggerHost: GetEnv("SWAGGER_HOST", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled reports whether refresh tokens are kept in Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres, StoreMySQL:
		for name, value := range map[string]string{
			"DB_HOST": c.DBHost,
			"DB_PORT": c.DBPort,
			"DB_USER": c.DBUser,
			"DB_NAME": c.DBName,
		} {
			if value == "" {
				return fmt.Errorf("%s is required for STORE_DRIVER=%s", name, c.StoreDriver)
			}
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.StorageProvider {
	case StorageLocal:
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for STORAGE_PROVIDER=gcs")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.StorageProvider)
	}

	if c.ContractorWriteRole != "Admin" && c.ContractorWriteRole != "User" {
		return fmt.Errorf("CONTRACTOR_WRITE_ROLE must be Admin or User")
	}
	return nil
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
