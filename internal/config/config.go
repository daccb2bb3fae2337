package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration, loaded from the environment
// with an optional .env file.
type Config struct {
	Port   string
	DBPath string

	// Cache gateway
	CacheDir string

	// Upstream market-data API
	MarketAPIBaseURL string
	MarketAPIToken   string
	ProxyURL         string
	RequestDelay     time.Duration

	// Financial model
	GradingCost float64

	// Update orchestrator
	UpdateInterval time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from the environment. A missing .env file
// is not an error.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables")
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./gradescout.db"),
		CacheDir:         getEnv("CACHE_DIR", "./cache/api_responses"),
		MarketAPIBaseURL: getEnv("MARKET_API_BASE_URL", "https://www.pokedata.io"),
		MarketAPIToken:   os.Getenv("MARKET_API_TOKEN"),
		ProxyURL:         os.Getenv("PROXY_URL"),
		RequestDelay:     time.Duration(getEnvInt("REQUEST_DELAY_MS", 2000)) * time.Millisecond,
		GradingCost:      getEnvFloat("GRADING_COST", 29),
		UpdateInterval:   time.Duration(getEnvInt("UPDATE_INTERVAL_MINUTES", 0)) * time.Minute,
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = strings.Split(origins, ",")
	} else {
		cfg.CORSAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: invalid integer for %s: %q, using %d", key, v, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: invalid number for %s: %q, using %g", key, v, fallback)
	}
	return fallback
}
