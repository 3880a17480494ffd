package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Recognized credential sources, checked in order.
var geminiKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_GENERATIVE_AI_API_KEY"}

type Config struct {
	// Server
	Port         string
	Env          string
	LogLevel     string
	APIPrefix    string
	CORSOrigins  []string
	MaxBodyBytes int64

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Assistant
	AssistantVariant string
	AssistantsFile   string
	RulesFile        string

	// Redis (optional, rules reload fan-out)
	RedisURL string

	// Admin auth for rule updates (optional)
	RulesJWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "3000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		APIPrefix:            normalizePrefix(getEnvOrDefault("API_PREFIX", "/gemini-ai")),
		CORSOrigins:          splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
		MaxBodyBytes:         int64(getEnvAsIntOrDefault("MAX_BODY_BYTES", 50<<20)),
		GeminiAPIKey:         firstEnv(geminiKeyEnvVars...),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		AssistantVariant:     getEnvOrDefault("ASSISTANT_VARIANT", "handyman"),
		AssistantsFile:       getEnvOrDefault("ASSISTANTS_FILE", ""),
		RulesFile:            getEnvOrDefault("RULES_FILE", "./data/ai-rules.txt"),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		RulesJWTSecret:       getEnvOrDefault("RULES_JWT_SECRET", ""),
	}

	if cfg.GeminiConcurrentReqs < 1 {
		cfg.GeminiConcurrentReqs = 1
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizePrefix(prefix string) string {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		return ""
	}
	return prefix
}
