package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is built once at process start and passed into constructors.
// An unset cache or upstream endpoint is a valid "not configured" state,
// not an error; dependent features degrade instead of failing.
type Config struct {
	Cache            Cache
	Upstream         Upstream
	Port             string
	DerivedIntervals []string
	ChunkSize        int
	ChunkWorkers     int
}

// Cache holds the candle cache database settings.
type Cache struct {
	URL string
}

func (c Cache) Configured() bool {
	return c.URL != ""
}

// Upstream holds the fallback market-data API settings.
type Upstream struct {
	BaseURL string
	APIKey  string
}

func (u Upstream) Configured() bool {
	return u.BaseURL != ""
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Cache:            Cache{URL: databaseURL()},
		Upstream:         Upstream{BaseURL: os.Getenv("UPSTREAM_URL"), APIKey: os.Getenv("UPSTREAM_API_KEY")},
		Port:             getEnv("PORT", "8080"),
		DerivedIntervals: splitList(getEnv("DERIVED_INTERVALS", "5m")),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 500),
		ChunkWorkers:     getEnvInt("CHUNK_WORKERS", 4),
	}
}

// databaseURL prefers DATABASE_URL and otherwise composes a DSN from the
// individual DB_* variables. DB_HOST unset means the cache is not configured.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "marketdata"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
