package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string
	TablePrefix     string
	LogLevel        string // slog level name; empty picks by environment
	LogDir          string // Optional: also write logs to rotating files here
	LogMaxFiles     int
	// LLM provider used by the respond endpoint
	LLMProvider      string
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	// Composition settings
	ComposerConfigPath string // Optional YAML override for composer budgets
	// Invalidation layer
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	// Stale-notice streams
	SSEKeepAlive time.Duration
	SSERetry     time.Duration
	// Schema bootstrap on startup
	ApplySchema bool
	// DevUserID authenticates every request as this user when Supabase is not configured
	DevUserID string
	// Debug flags
	Debug bool // Enables debug routes and stream event IDs
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	jwksURL := ""
	if supabaseURL != "" {
		jwksURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		SupabaseURL:        supabaseURL,
		SupabaseDBURL:      getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:    jwksURL,
		CORSOrigins:        getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:        tablePrefix,
		LogLevel:           getEnv("LOG_LEVEL", ""),
		LogDir:             getEnv("LOG_DIR", ""),
		LogMaxFiles:        getEnvInt("LOG_MAX_FILES", 10),
		LLMProvider:        getEnv("LLM_PROVIDER", "lorem"),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		OpenRouterAPIKey:   getEnv("OPENROUTER_API_KEY", ""),
		ComposerConfigPath: getEnv("COMPOSER_CONFIG", ""),
		BreakerMaxFailures: uint32(getEnvInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		SSEKeepAlive:       getEnvDuration("SSE_KEEPALIVE", 15*time.Second),
		SSERetry:           getEnvDuration("SSE_RETRY", 3*time.Second),
		ApplySchema:        getEnv("APPLY_SCHEMA", "false") == "true",
		DevUserID:          getEnv("DEV_USER_ID", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
