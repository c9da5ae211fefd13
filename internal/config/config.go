package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the full application configuration, populated from
// environment variables.
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	ReturnPolicy ReturnPolicyConfig
	Borzo        BorzoConfig
	Razorpay     RazorpayConfig
	OrderLedger  OrderLedgerConfig
	Directory    DirectoryConfig
	MinIO        MinIOConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// ReturnPolicyConfig carries the business knobs of the return lifecycle.
// The refund method choice is deliberately configuration, not code.
type ReturnPolicyConfig struct {
	ReturnWindowDays    int    // days after delivery a return may be opened
	DefaultRefundMethod string // "online" or "manual"
	PickupSLADays       int    // days a scheduled pickup may stay incomplete before it is flagged
	MaxPickupAttempts   int    // bounded retry attempts for partner scheduling
}

type BorzoConfig struct {
	APIURL         string // Borzo business API base URL
	AuthToken      string // X-DV-Auth-Token
	CallbackSecret string // HMAC secret for callback verification
}

type RazorpayConfig struct {
	APIURL        string // https://api.razorpay.com/v1
	KeyID         string
	KeySecret     string
	WebhookSecret string // HMAC secret for X-Razorpay-Signature
}

type OrderLedgerConfig struct {
	BaseURL string
	APIKey  string
}

type DirectoryConfig struct {
	BaseURL string
	APIKey  string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Returns API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "returns"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		ReturnPolicy: ReturnPolicyConfig{
			ReturnWindowDays:    getEnvInt("RETURN_WINDOW_DAYS", 7),
			DefaultRefundMethod: getEnv("RETURN_REFUND_METHOD", "online"),
			PickupSLADays:       getEnvInt("RETURN_PICKUP_SLA_DAYS", 3),
			MaxPickupAttempts:   getEnvInt("RETURN_MAX_PICKUP_ATTEMPTS", 5),
		},
		Borzo: BorzoConfig{
			APIURL:         getEnv("BORZO_API_URL", "https://robotapitest-in.borzodelivery.com/api/business/1.6"),
			AuthToken:      getEnv("BORZO_AUTH_TOKEN", ""),
			CallbackSecret: getEnv("BORZO_CALLBACK_SECRET", ""),
		},
		Razorpay: RazorpayConfig{
			APIURL:        getEnv("RAZORPAY_API_URL", "https://api.razorpay.com/v1"),
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		},
		OrderLedger: OrderLedgerConfig{
			BaseURL: getEnv("ORDER_LEDGER_URL", "http://localhost:8081"),
			APIKey:  getEnv("ORDER_LEDGER_API_KEY", ""),
		},
		Directory: DirectoryConfig{
			BaseURL: getEnv("DIRECTORY_URL", "http://localhost:8082"),
			APIKey:  getEnv("DIRECTORY_API_KEY", ""),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "returns"),
			UseSSL:    false,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ReturnPolicy.ReturnWindowDays <= 0 {
		return fmt.Errorf("RETURN_WINDOW_DAYS must be positive")
	}
	if m := c.ReturnPolicy.DefaultRefundMethod; m != "online" && m != "manual" {
		return fmt.Errorf("RETURN_REFUND_METHOD must be 'online' or 'manual', got %q", m)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
