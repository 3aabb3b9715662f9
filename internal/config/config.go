package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the FleetDesk service.
type Config struct {
	// Service addresses
	HTTPPort   string
	HealthPort string

	// Backing store
	StoreType        string
	ConnectionString string

	// Redis connection
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event bus (optional - empty URL disables catalog events)
	NATSURL string

	// Auth
	TokenTTLMinutes int

	// Bootstrap admin account, created on first start when set
	AdminUsername string
	AdminPassword string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		// Service addresses with defaults
		HTTPPort:   getEnvOrDefault("HTTP_PORT", "8080"),
		HealthPort: getEnvOrDefault("HEALTH_PORT", "8081"),

		// Backing store
		StoreType:        getEnvOrDefault("STORE_TYPE", "postgres"),
		ConnectionString: os.Getenv("STORE_DSN"),

		// Redis connection with defaults
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseIntOrDefault("REDIS_DB", 0),

		NATSURL: os.Getenv("NATS_URL"),

		TokenTTLMinutes: parseIntOrDefault("TOKEN_TTL_MINUTES", 60),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.StoreType == "" {
		return fmt.Errorf("STORE_TYPE is required")
	}

	if c.ConnectionString == "" {
		return fmt.Errorf("STORE_DSN is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.TokenTTLMinutes < 1 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be at least 1")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
