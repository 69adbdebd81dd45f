package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingJWTSecret is reported by Validate when no token secret is configured
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config holds application configuration
type Config struct {
	ServerPort string

	// Database
	DatabaseType   string // sqlite, postgres or mysql
	DatabasePath   string // SQLite file
	DatabaseURL    string // PostgreSQL/MySQL DSN
	MigrationsPath string // empty uses the embedded migrations

	LogMode string

	// Quiz sessions
	SessionStore         string // memory or redis
	SessionTTL           time.Duration
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	CompletionRetries    int
	CompletionRetryDelay time.Duration
	SubmitRateLimit      int // answer submissions per minute per learner

	JWTSecret   string
	CORSOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:           getEnv("PORT", "8080"),
		DatabaseType:         getEnv("DB_TYPE", "sqlite"),
		DatabasePath:         getEnv("DB_PATH", "./yourvocab.db"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", ""),
		LogMode:              getEnv("LOG_MODE", "dev"),
		SessionStore:         getEnv("SESSION_STORE", "memory"),
		SessionTTL:           getDuration("SESSION_TTL", 2*time.Hour),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getInt("REDIS_DB", 0),
		CompletionRetries:    getInt("COMPLETION_RETRIES", 3),
		CompletionRetryDelay: getDuration("COMPLETION_RETRY_DELAY", 100*time.Millisecond),
		SubmitRateLimit:      getInt("SUBMIT_RATE_LIMIT", 120),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		CORSOrigins:          getCSV("CORS_ORIGINS", "http://localhost:3000"),
	}
}

// Validate reports settings the server cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getCSV(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
