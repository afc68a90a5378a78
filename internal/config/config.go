package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Keys       APIKeys
	Ai         AIConfig
	Clustering ClusteringConfig
	Pipeline   PipelineConfig
	Telemetry  TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	PipelineLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	JWTSecret    string
	GoogleGemini string
	LLM          string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama", "openai"
	LLMModel          string
	LLMBaseURL        string
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
	CallTimeout       time.Duration
	EmbeddingCacheTTL time.Duration
}

type ClusteringConfig struct {
	ClusterThreshold float64
	SimilarThreshold float64
	Strategy         string // "greedy" or "components"
}

type PipelineConfig struct {
	Concurrency     int
	RunTimeout      time.Duration
	UnitTimeout     time.Duration
	TopK            int
	MinRelevance    float64
	MaxContextChars int
	TriggerTopic    string
	LockTTL         time.Duration
}

// TelemetryConfig drives the OTLP/HTTP trace exporter. Tracing stays off unless Enabled.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			PipelineLogPath:    getEnv("PIPELINE_LOG_FILE_PATH", "logs/pipeline.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			LLM:          getEnv("LLM_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			MaxTokens:         getEnvAsInt("AI_MAX_TOKENS", 800),
			Temperature:       getEnvAsFloat("AI_TEMPERATURE", 0.2),
			RequestsPerSecond: getEnvAsFloat("AI_REQUESTS_PER_SECOND", 2),
			CallTimeout:       getEnvAsDuration("AI_CALL_TIMEOUT", 2*time.Minute),
			EmbeddingCacheTTL: getEnvAsDuration("EMBEDDING_CACHE_TTL", time.Hour),
		},
		Clustering: ClusteringConfig{
			ClusterThreshold: getEnvAsFloat("CLUSTER_THRESHOLD", 0.90),
			SimilarThreshold: getEnvAsFloat("SIMILAR_THRESHOLD", 0.80),
			Strategy:         getEnv("CLUSTER_STRATEGY", "greedy"),
		},
		Pipeline: PipelineConfig{
			Concurrency:     getEnvAsInt("PIPELINE_CONCURRENCY", 5),
			RunTimeout:      getEnvAsDuration("PIPELINE_RUN_TIMEOUT", 60*time.Minute),
			UnitTimeout:     getEnvAsDuration("PIPELINE_UNIT_TIMEOUT", 3*time.Minute),
			TopK:            getEnvAsInt("PIPELINE_TOP_K", 8),
			MinRelevance:    getEnvAsFloat("PIPELINE_MIN_RELEVANCE", 0.3),
			MaxContextChars: getEnvAsInt("PIPELINE_MAX_CONTEXT_CHARS", 12000),
			TriggerTopic:    getEnv("PIPELINE_TRIGGER_TOPIC", "RUN_ANSWER_GENERATION"),
			LockTTL:         getEnvAsDuration("PIPELINE_LOCK_TTL", 65*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "rfp-answer-engine"),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
