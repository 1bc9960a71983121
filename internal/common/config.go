package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Reference ReferenceConfig
	Kafka     KafkaConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string `validate:"required"`
	MaxConns         int32  `validate:"gte=1"`
	MinConns         int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `validate:"required"`
	// InboxDir, when set, is watched for order files.
	InboxDir string
	Workers  int `validate:"gte=1"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string  `validate:"oneof=anthropic openai"`
	APIKey       string  `validate:"required"`
	BaseURL      string
	DefaultModel string  `validate:"required"`
	ComplexModel string  `validate:"required"`
	MaxTokens    int     `validate:"gte=256"`
	Temperature  float32 `validate:"gte=0,lte=2"`
	Timeout      time.Duration

	// RatePerSecond caps outbound calls across all extractors.
	RatePerSecond float64       `validate:"gt=0"`
	Burst         int           `validate:"gte=1"`
	MaxAttempts   int           `validate:"gte=1,lte=10"`
	RetryInterval time.Duration `validate:"gt=0"`
}

// PipelineConfig holds matching thresholds and concurrency limits.
type PipelineConfig struct {
	CustomerThreshold float64 `validate:"gt=0,lte=1"`
	AddressThreshold  float64 `validate:"gt=0,lte=1"`
	CatalogThreshold  float64 `validate:"gt=0,lte=1"`
	OrderConcurrency  int     `validate:"gte=1"`
	FieldConcurrency  int     `validate:"gte=1"`
	OverridesFile     string
}

// ReferenceConfig controls how the reference snapshot is loaded.
type ReferenceConfig struct {
	CacheTTL      time.Duration
	MaxAttempts   int `validate:"gte=1"`
	RetryInterval time.Duration
}

// KafkaConfig is optional; an empty broker list disables event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string `validate:"required_with=Brokers"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", "anthropic"))
	apiKeyVar, defModel, cplxModel := "ANTHROPIC_API_KEY", "claude-sonnet-4-5-20250929", "claude-sonnet-4-5-20250929"
	if provider == "openai" {
		apiKeyVar, defModel, cplxModel = "OPENAI_API_KEY", "gpt-4o-mini", "gpt-4o"
	}
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			InboxDir: getEnv("INBOX_DIR", ""),
			Workers:  getEnvAsInt("JOB_WORKERS", 2),
		},
		LLM: LLMConfig{
			Provider:      provider,
			APIKey:        getEnv(apiKeyVar, ""),
			BaseURL:       getEnv("LLM_BASE_URL", ""),
			DefaultModel:  getEnv("LLM_MODEL_DEFAULT", defModel),
			ComplexModel:  getEnv("LLM_MODEL_COMPLEX", cplxModel),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			RatePerSecond: getEnvAsFloat64("LLM_RATE_PER_SECOND", 3),
			Burst:         getEnvAsInt("LLM_BURST", 5),
			MaxAttempts:   getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryInterval: getEnvAsDuration("LLM_RETRY_INTERVAL", 2*time.Second),
		},
		Pipeline: PipelineConfig{
			CustomerThreshold: getEnvAsFloat64("CUSTOMER_MATCH_THRESHOLD", 0.60),
			AddressThreshold:  getEnvAsFloat64("ADDRESS_MATCH_THRESHOLD", 0.80),
			CatalogThreshold:  getEnvAsFloat64("CATALOG_MATCH_THRESHOLD", 0.60),
			OrderConcurrency:  getEnvAsInt("ORDER_CONCURRENCY", 4),
			FieldConcurrency:  getEnvAsInt("FIELD_CONCURRENCY", 5),
			OverridesFile:     getEnv("MATCH_OVERRIDES_FILE", ""),
		},
		Reference: ReferenceConfig{
			CacheTTL:      getEnvAsDuration("REFERENCE_CACHE_TTL", 10*time.Minute),
			MaxAttempts:   getEnvAsInt("REFERENCE_MAX_ATTEMPTS", 3),
			RetryInterval: getEnvAsDuration("REFERENCE_RETRY_INTERVAL", time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "orders.jobs"),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return nil
}

// ValidateDatabase checks only the database section, for commands that never call the LLM.
func (c *Config) ValidateDatabase() error {
	if err := ValidateStruct(c.Database); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid database configuration", err)
	}
	return nil
}
