package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream MediCare HMS API
	HMSBaseURL     string
	HMSAuthToken   string
	HMSTimeout     time.Duration
	RosterRefresh  time.Duration
	RosterCacheTTL time.Duration

	// Patient-facing auth
	PatientJWTSecret string

	// Session lifecycle
	SessionIdleTTL time.Duration

	// Optional shared roster cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HMSBaseURL:     getEnv("HMS_BASE_URL", "http://localhost:8081/api"),
		HMSAuthToken:   getEnv("HMS_AUTH_TOKEN", ""),
		HMSTimeout:     getEnvAsDuration("HMS_TIMEOUT", 15*time.Second),
		RosterRefresh:  getEnvAsDuration("ROSTER_REFRESH_INTERVAL", 15*time.Minute),
		RosterCacheTTL: getEnvAsDuration("ROSTER_CACHE_TTL", 30*time.Minute),

		PatientJWTSecret: getEnv("PATIENT_JWT_SECRET", ""),

		SessionIdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, trimming blanks.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
