package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Vision    VisionConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Addr           string
	Environment    string
	AllowedOrigins []string
}

// VisionConfig holds Cloud Vision OCR configuration
type VisionConfig struct {
	APIKey   string
	Endpoint string // override for tests; empty means the public endpoint
	Timeout  time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	PerIP int // requests per minute; 0 disables limiting
	Burst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "*")},
		},
		Vision: VisionConfig{
			APIKey:   getEnv("VISION_API_KEY", ""),
			Endpoint: getEnv("VISION_ENDPOINT", ""),
			Timeout:  getEnvAsDuration("VISION_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 2000),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			PerIP: getEnvAsInt("RATE_LIMIT_PER_IP", 60),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. The Vision key is mandatory:
// the OCR proxy cannot degrade. The OpenAI key is optional because the parse
// proxy falls back to the regex line parser when it is absent.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
