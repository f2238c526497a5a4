package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	RedisURL            string
	InputQueue          string
	ExtractionURL       string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Workers             int
	BatchSize           int
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILSIFT_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILSIFT_ENCRYPTION_KEY_BASE64"),
		RedisURL:            getEnvOrDefault("MAILSIFT_REDIS_URL", "redis://localhost:6379/0"),
		InputQueue:          getEnvOrDefault("MAILSIFT_INPUT_QUEUE", "mailsift:accounts"),
		ExtractionURL:       os.Getenv("MAILSIFT_EXTRACTION_URL"),
		DBHost:              getEnvOrDefault("MAILSIFT_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILSIFT_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILSIFT_DB_USER", "mailsift"),
		DBPassword:          os.Getenv("MAILSIFT_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILSIFT_DB_NAME", "mailsift"),
		DBSSLMode:           getEnvOrDefault("MAILSIFT_DB_SSLMODE", "disable"),
		Workers:             getEnvOrDefaultInt("MAILSIFT_WORKERS", 4),
		BatchSize:           getEnvOrDefaultInt("MAILSIFT_BATCH_SIZE", 50),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILSIFT_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.ExtractionURL == "" {
		return fmt.Errorf("MAILSIFT_EXTRACTION_URL is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILSIFT_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
