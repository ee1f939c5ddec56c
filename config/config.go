package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. It is read once at startup and shared
// read-only by every request.
type Config struct {
	LLM      LLMConfig
	Embedder EmbedderConfig
	Search   SearchConfig
	Vector   VectorConfig
	History  HistoryConfig
	Server   ServerConfig
	System   SystemConfig
}

// LLMConfig selects and configures the generative model.
type LLMConfig struct {
	Provider        string // gemini|openai|claude
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Temperature     float64
	MaxTokens       int
}

// EmbedderConfig selects the embedding model used for retrieval and ingestion.
type EmbedderConfig struct {
	Provider    string // gemini|openai
	GeminiModel string
	OpenAIModel string
	Dimension   int
}

// SearchConfig carries web-search credentials. A provider is enabled exactly
// when its credentials are present.
type SearchConfig struct {
	SerperAPIKey          string
	BingAPIKey            string
	SemanticScholarAPIKey string
	TavilyAPIKey          string
	BrightDataAPIKey      string
	BrightDataUsername    string
	BrightDataPassword    string
	DuckDuckGoEnabled     bool
	ProviderTimeout       time.Duration
}

// VectorConfig selects the knowledge-base backend.
type VectorConfig struct {
	Backend    string // qdrant|pgvector|memory
	QdrantURL  string
	Collection string
	Postgres   PostgresConfig
}

// PostgresConfig holds PostgreSQL connection settings shared by pgvector and the
// conversation store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// HistoryConfig selects the conversation store backend.
type HistoryConfig struct {
	Backend       string // memory|redis|mongo|postgres
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	HealthCacheTTL time.Duration
}

// SystemConfig holds pipeline tuning knobs.
type SystemConfig struct {
	MaxRetrievalResults  int
	RetrievalTimeout     time.Duration
	MaxWebSearchResults  int
	MaxConcurrentQueries int
	OTLPEndpoint         string
	DisableTracing       bool
}

// Load reads the given env files (.env by default, when present) and the
// environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", "kgpgpt"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return &Config{
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 2048),
		},
		Embedder: EmbedderConfig{
			Provider:    strings.ToLower(getEnv("EMBEDDER", "gemini")),
			GeminiModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			OpenAIModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension:   getEnvInt("VECTOR_SIZE", 768),
		},
		Search: SearchConfig{
			SerperAPIKey:          getEnv("SERPER_API_KEY", ""),
			BingAPIKey:            getEnv("BING_API_KEY", ""),
			SemanticScholarAPIKey: getEnv("SEMANTIC_SCHOLAR_API_KEY", ""),
			TavilyAPIKey:          getEnv("TAVILY_API_KEY", ""),
			BrightDataAPIKey:      getEnv("BRIGHTDATA_API_KEY", ""),
			BrightDataUsername:    getEnv("BRIGHTDATA_USERNAME", ""),
			BrightDataPassword:    getEnv("BRIGHTDATA_PASSWORD", ""),
			DuckDuckGoEnabled:     getEnvBool("DUCKDUCKGO_ENABLED", true),
			ProviderTimeout:       getEnvDuration("PROVIDER_TIMEOUT", 8*time.Second),
		},
		Vector: VectorConfig{
			Backend:    strings.ToLower(getEnv("VECTOR_BACKEND", "qdrant")),
			QdrantURL:  getEnv("QDRANT_URL", "http://localhost:6333"),
			Collection: getEnv("QDRANT_COLLECTION", "kgp_knowledge_base"),
			Postgres:   pg,
		},
		History: HistoryConfig{
			Backend:       strings.ToLower(getEnv("HISTORY_BACKEND", "memory")),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", "kgpgpt:"),
			MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGODB_DB", "kgpgpt"),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":3000"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
			HealthCacheTTL: getEnvDuration("HEALTH_CACHE_TTL", 30*time.Second),
		},
		System: SystemConfig{
			MaxRetrievalResults:  getEnvInt("MAX_RETRIEVAL_RESULTS", 5),
			RetrievalTimeout:     getEnvDuration("RETRIEVAL_TIMEOUT", 8*time.Second),
			MaxWebSearchResults:  getEnvInt("MAX_WEB_SEARCH_RESULTS", 5),
			MaxConcurrentQueries: getEnvInt("MAX_CONCURRENT_QUERIES", 16),
			OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			DisableTracing:       getEnvBool("KGPGPT_DISABLE_TRACING", false),
		},
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("LLM_PROVIDER", c.LLM.Provider, "gemini", "openai", "claude")
	switch c.LLM.Provider {
	case "gemini":
		v.RequireNonEmpty("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	case "openai":
		v.RequireNonEmpty("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	case "claude":
		v.RequireNonEmpty("ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey)
	}
	v.ValidateFloatRange("LLM_TEMPERATURE", c.LLM.Temperature, 0, 2)
	v.RequirePositive("LLM_MAX_TOKENS", c.LLM.MaxTokens)

	v.ValidateOneOf("EMBEDDER", c.Embedder.Provider, "gemini", "openai")
	v.RequirePositive("VECTOR_SIZE", c.Embedder.Dimension)

	bd := c.Search.BrightDataAPIKey != ""
	v.RequireWhen(bd, "BRIGHTDATA_USERNAME", c.Search.BrightDataUsername, "when BRIGHTDATA_API_KEY is provided")
	v.RequireWhen(bd, "BRIGHTDATA_PASSWORD", c.Search.BrightDataPassword, "when BRIGHTDATA_API_KEY is provided")
	v.RequirePositive("PROVIDER_TIMEOUT", int(c.Search.ProviderTimeout.Milliseconds()))

	v.ValidateOneOf("VECTOR_BACKEND", c.Vector.Backend, "qdrant", "pgvector", "memory")
	v.RequireWhen(c.Vector.Backend == "qdrant", "QDRANT_URL", c.Vector.QdrantURL, "for the qdrant backend")
	v.RequireNonEmpty("QDRANT_COLLECTION", c.Vector.Collection)

	v.ValidateOneOf("HISTORY_BACKEND", c.History.Backend, "memory", "redis", "mongo", "postgres")

	v.RequirePositive("REQUEST_TIMEOUT", int(c.Server.RequestTimeout.Milliseconds()))
	v.ValidateFloatRange("RATE_LIMIT_RPS", c.Server.RateLimitRPS, 0.01, 10000)
	v.RequirePositive("RATE_LIMIT_BURST", c.Server.RateLimitBurst)

	v.ValidateRange("MAX_RETRIEVAL_RESULTS", c.System.MaxRetrievalResults, 1, 20)
	v.RequirePositive("RETRIEVAL_TIMEOUT", int(c.System.RetrievalTimeout.Milliseconds()))
	v.ValidateRange("MAX_WEB_SEARCH_RESULTS", c.System.MaxWebSearchResults, 1, 10)
	v.RequirePositive("MAX_CONCURRENT_QUERIES", c.System.MaxConcurrentQueries)

	return v.Error()
}

// Summary describes the configuration without exposing secrets.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"llm": map[string]any{
			"provider":      c.LLM.Provider,
			"model":         c.ActiveModel(),
			"apiKeyPresent": c.activeKey() != "",
		},
		"vector": map[string]any{
			"backend":    c.Vector.Backend,
			"url":        c.Vector.QdrantURL,
			"collection": c.Vector.Collection,
		},
		"search": map[string]any{
			"serper":          c.Search.SerperAPIKey != "",
			"bing":            c.Search.BingAPIKey != "",
			"semanticScholar": c.Search.SemanticScholarAPIKey != "",
			"tavily":          c.Search.TavilyAPIKey != "",
			"brightdata":      c.Search.BrightDataAPIKey != "",
			"duckduckgo":      c.Search.DuckDuckGoEnabled,
		},
		"history": c.History.Backend,
	}
}

// ActiveModel returns the model name of the selected LLM provider.
func (c *Config) ActiveModel() string {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.OpenAIModel
	case "claude":
		return c.LLM.AnthropicModel
	default:
		return c.LLM.GeminiModel
	}
}

func (c *Config) activeKey() string {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.OpenAIAPIKey
	case "claude":
		return c.LLM.AnthropicAPIKey
	default:
		return c.LLM.GeminiAPIKey
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
