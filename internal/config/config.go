package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	AppPort int
	LogFile string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisHost     string
	RedisPort     int
	RedisPassword string

	CacheTTL    time.Duration
	AutoMigrate bool
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:          envInt("APP_PORT", 8080),
		LogFile:          envString("LOG_FILE", "app.log"),
		PostgresHost:     envString("POSTGRES_HOST", "127.0.0.1"),
		PostgresPort:     envInt("POSTGRES_PORT", 5432),
		PostgresUser:     envString("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       envString("POSTGRES_DB", "accesscontrol"),
		RedisHost:        envString("REDIS_HOST", "127.0.0.1"),
		RedisPort:        envInt("REDIS_PORT", 6379),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		CacheTTL:         time.Duration(envInt("CACHE_TTL_MINUTES", 30)) * time.Minute,
		AutoMigrate:      envBool("AUTO_MIGRATE", true),
	}

	if cfg.PostgresPassword == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD must be provided")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
