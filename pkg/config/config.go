package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Events   EventsConfig
	OpenAI   OpenAIConfig
	Search   SearchConfig
	OpenFDA  OpenFDAConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Enabled  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig controls the scan result cache
type CacheConfig struct {
	Enabled    bool
	TTLSeconds int
}

// EventsConfig controls scan event publishing over Redis pub/sub
type EventsConfig struct {
	Enabled bool
	Channel string
}

// OpenAIConfig holds the generative model configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// SearchConfig holds the free-text web search configuration
type SearchConfig struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	ResultCount    int
	Region         string
	Language       string
	TrustedDomains []string
}

// OpenFDAConfig holds the drug registry configuration
type OpenFDAConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Limit   int
	Enabled bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// DefaultTrustedDomains are the medical reference sites used to scope free-text searches.
var DefaultTrustedDomains = []string{
	"drugs.com",
	"medlineplus.gov",
	"dailymed.nlm.nih.gov",
	"fda.gov",
	"webmd.com",
	"mayoclinic.org",
	"rxlist.com",
	"nhs.uk",
	"medicines.org.uk",
	"ema.europa.eu",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", nil),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "medscan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getEnvAsBool("DB_ENABLED", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			TTLSeconds: getEnvAsInt("CACHE_TTL_SECONDS", 3600),
		},
		Events: EventsConfig{
			Enabled: getEnvAsBool("SCAN_EVENTS_ENABLED", false),
			Channel: getEnv("SCAN_EVENTS_CHANNEL", "medication:scans"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Search: SearchConfig{
			APIKey:         getEnv("SEARCH_API_KEY", ""),
			BaseURL:        getEnv("SEARCH_BASE_URL", "https://google.serper.dev/search"),
			Timeout:        getEnvAsDuration("SEARCH_TIMEOUT", 8*time.Second),
			ResultCount:    getEnvAsInt("SEARCH_RESULT_COUNT", 8),
			Region:         getEnv("SEARCH_REGION", ""),
			Language:       getEnv("SEARCH_LANGUAGE", ""),
			TrustedDomains: getEnvAsList("SEARCH_TRUSTED_DOMAINS", DefaultTrustedDomains),
		},
		OpenFDA: OpenFDAConfig{
			BaseURL: getEnv("OPENFDA_BASE_URL", "https://api.fda.gov"),
			APIKey:  getEnv("OPENFDA_API_KEY", ""),
			Timeout: getEnvAsDuration("OPENFDA_TIMEOUT", 8*time.Second),
			Limit:   getEnvAsInt("OPENFDA_LIMIT", 5),
			Enabled: getEnvAsBool("OPENFDA_ENABLED", true),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "medscan"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.OpenFDA.Limit <= 0 {
		return nil, fmt.Errorf("OPENFDA_LIMIT must be positive, got %d", cfg.OpenFDA.Limit)
	}
	if cfg.Search.ResultCount <= 0 {
		return nil, fmt.Errorf("SEARCH_RESULT_COUNT must be positive, got %d", cfg.Search.ResultCount)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
