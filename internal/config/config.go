package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ErrorModeEmbedded = "embedded"
	ErrorModeStatus   = "status"

	UpstreamClientHTTP = "http"
	UpstreamClientEino = "eino"
)

type Config struct {
	// Server
	Port          string
	Env           string
	StaticDir     string
	AllowedOrigin string

	// Upstream
	APIKey          string
	UpstreamURL     string
	UpstreamModel   string
	UpstreamClient  string
	UpstreamTimeout time.Duration

	// Relay policy
	RequireHistory  bool
	ValidateHistory bool
	TrimHistory     bool
	TrimWindow      int
	SendTemperature bool
	Temperature     float32
	ErrorMode       string
	SystemPrompt    string
	EmptyAnswer     string

	// Redis (optional)
	RedisURL      string
	EventsChannel string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "5000"),
		Env:           getEnvOrDefault("ENV", "development"),
		StaticDir:     os.Getenv("STATIC_DIR"),
		AllowedOrigin: getEnvOrDefault("ALLOWED_ORIGIN", "*"),

		APIKey:          mustGetEnv("GROQ_API_KEY"),
		UpstreamURL:     getEnvOrDefault("UPSTREAM_URL", "https://api.groq.com/openai/v1/chat/completions"),
		UpstreamModel:   getEnvOrDefault("UPSTREAM_MODEL", "llama-3.3-70b-versatile"),
		UpstreamClient:  getEnvOrDefault("UPSTREAM_CLIENT", UpstreamClientHTTP),
		UpstreamTimeout: getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 60*time.Second),

		RequireHistory:  getEnvAsBoolOrDefault("REQUIRE_HISTORY", false),
		ValidateHistory: getEnvAsBoolOrDefault("VALIDATE_HISTORY", true),
		TrimHistory:     getEnvAsBoolOrDefault("TRIM_HISTORY", true),
		TrimWindow:      getEnvAsIntOrDefault("TRIM_WINDOW", 10),
		SendTemperature: getEnvAsBoolOrDefault("SEND_TEMPERATURE", true),
		Temperature:     getEnvAsFloatOrDefault("TEMPERATURE", 0.7),
		ErrorMode:       getEnvOrDefault("ERROR_MODE", ErrorModeEmbedded),
		SystemPrompt:    getEnvOrDefault("SYSTEM_PROMPT", "Explain clearly for a student."),
		EmptyAnswer:     getEnvOrDefault("EMPTY_ANSWER", "No response from model."),

		RedisURL:      os.Getenv("REDIS_URL"),
		EventsChannel: getEnvOrDefault("EVENTS_CHANNEL", "relay_events"),
	}

	if _, set := os.LookupEnv("STATIC_DIR"); !set {
		cfg.StaticDir = "./public"
	}

	cfg.normalize()
	return cfg
}

// normalize replaces unusable values with defaults instead of failing startup.
func (c *Config) normalize() {
	if c.ErrorMode != ErrorModeEmbedded && c.ErrorMode != ErrorModeStatus {
		log.Printf("unknown ERROR_MODE %q, using %q", c.ErrorMode, ErrorModeEmbedded)
		c.ErrorMode = ErrorModeEmbedded
	}
	if c.UpstreamClient != UpstreamClientHTTP && c.UpstreamClient != UpstreamClientEino {
		log.Printf("unknown UPSTREAM_CLIENT %q, using %q", c.UpstreamClient, UpstreamClientHTTP)
		c.UpstreamClient = UpstreamClientHTTP
	}
	if c.TrimWindow <= 0 {
		c.TrimWindow = 10
	}
	if c.UpstreamTimeout < 0 {
		c.UpstreamTimeout = 0
	}
}

// TemperatureParam returns the temperature to send upstream, or nil when
// temperature is not part of the request.
func (c *Config) TemperatureParam() *float32 {
	if !c.SendTemperature {
		return nil
	}
	t := c.Temperature
	return &t
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
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

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsFloatOrDefault(key string, defaultVal float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return defaultVal
	}
	return float32(f)
}

// getEnvAsDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
