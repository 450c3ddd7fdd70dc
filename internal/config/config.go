package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	AppBaseURL     string
	MigrationsPath string

	// Database: sqlite (default), postgres or mysql
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionDuration      time.Duration
	ChildSessionDuration time.Duration
	CSRFSecret           string

	// Amazon SES (email disabled when SESFromEmail is empty)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// OAuth providers
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	AppleClientID        string
	AppleClientSecret    string
	OAuthRedirectBaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./famlink.db"),
		DatabaseURL:  getEnv("DB_URL", ""),

		SessionDuration:      getDurationEnv("SESSION_DURATION", 7*24*time.Hour),
		ChildSessionDuration: getDurationEnv("CHILD_SESSION_DURATION", 24*time.Hour),
		CSRFSecret:           getEnv("CSRF_SECRET", "famlink-dev-secret"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Famlink"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		AppleClientID:        getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:    getEnv("APPLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}
