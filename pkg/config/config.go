package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Process-wide settings, populated by Load.
var (
	AppEnv       string
	IsStaging    bool
	IsProduction bool
	Port         string

	// completion provider: "openai", "gemini" or "mock"
	LLMProvider       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	GeminiModel       string
	LLMTemperature    float64
	LLMTimeoutSeconds int

	// datastore: "sqlite", "mysql" or "postgres"
	DBDriver       string
	DatabaseURL    string
	DatabaseAPIKey string

	// optional; when empty the bearer gate only checks the header shape
	JWTSecret string

	CORSAllowedOrigins []string
	// proxies whose X-Forwarded-For is honoured; empty trusts none
	TrustedProxies []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogFile  string

	// runtime tunables
	RateLimitWindowSeconds int
	RateLimitCapacity      int
	MemoryTTLSeconds       int
	MemoryMaxConversations int
	MemoryWindowMessages   int
)

var defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"}

// loadDotEnv loads .env outside production. A missing file is not an error.
func loadDotEnv() error {
	if os.Getenv("APP_ENV") == "production" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the environment (and .env when not in production) into the
// package variables and validates them.
func Load() error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	AppEnv = strings.ToLower(getEnv("APP_ENV", "development"))
	if !slices.Contains([]string{"development", "staging", "production"}, AppEnv) {
		return fmt.Errorf("APP_ENV must be 'development', 'staging' or 'production', got %q", AppEnv)
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	Port = getEnv("PORT", "5000")

	LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.0-flash")
	LLMTemperature = atofOr(os.Getenv("LLM_TEMPERATURE"), 0.7)
	LLMTimeoutSeconds = atoiOr(os.Getenv("LLM_TIMEOUT_SECONDS"), 60)

	DBDriver = strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	DatabaseURL = getEnv("DATABASE_URL", "fitcoach.db")
	DatabaseAPIKey = os.Getenv("DATABASE_API_KEY")

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"), defaultOrigins)
	TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"), nil)

	RedisAddr = os.Getenv("REDIS_ADDR")
	RedisPassword = os.Getenv("REDIS_PASSWORD")
	RedisDB = atoiOr(os.Getenv("REDIS_DB"), 0)

	LogLevel = getEnv("LOG_LEVEL", "info")
	LogFile = os.Getenv("LOG_FILE")

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5)
	MemoryTTLSeconds = atoiOr(os.Getenv("MEMORY_TTL_SECONDS"), 1800)
	MemoryMaxConversations = atoiOr(os.Getenv("MEMORY_MAX_CONVERSATIONS"), 500)
	MemoryWindowMessages = atoiOr(os.Getenv("MEMORY_WINDOW_MESSAGES"), 20)

	return validate()
}

func validate() error {
	switch LLMProvider {
	case "openai", "gemini", "mock":
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'openai', 'gemini' or 'mock', got %q", LLMProvider)
	}
	switch DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be 'sqlite', 'mysql' or 'postgres', got %q", DBDriver)
	}
	if !IsProduction {
		return nil
	}
	if LLMProvider == "mock" {
		return errors.New("LLM_PROVIDER=mock is not allowed in production")
	}
	if LLMProvider == "openai" && OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY must be set in production")
	}
	if LLMProvider == "gemini" && GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY must be set in production")
	}
	if os.Getenv("DATABASE_URL") == "" {
		return errors.New("DATABASE_URL must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

func atofOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v
	}
	return def
}

// splitList parses a comma separated list, dropping empty items.
func splitList(s string, def []string) []string {
	if strings.TrimSpace(s) == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
