package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort        string `yaml:"api_port"`
	LogLevel       string `yaml:"log_level"`
	AllowedOrigins string `yaml:"allowed_origins"`

	CorpusRoot    string `yaml:"corpus_root"`
	IndexPath     string `yaml:"index_path"`
	SessionDBPath string `yaml:"session_db_path"`

	SessionTTLHours  int `yaml:"session_ttl_hours"`
	SessionTurnLimit int `yaml:"session_turn_limit"`

	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	EmbedBatchSize int `yaml:"embed_batch_size"`

	TopKDefault   int     `yaml:"top_k_default"`
	TopKMax       int     `yaml:"top_k_max"`
	MaxQueryChars int     `yaml:"max_query_chars"`
	MinScore      float64 `yaml:"min_score"`

	EmbeddingBackend  string `yaml:"embedding_backend"`
	GenerationBackend string `yaml:"generation_backend"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIBaseURL    string `yaml:"openai_base_url"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIGenModel   string `yaml:"openai_gen_model"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	EmbedTimeoutSeconds  int `yaml:"embed_timeout_seconds"`
	AnswerTimeoutSeconds int `yaml:"answer_timeout_seconds"`
	RouteTimeoutSeconds  int `yaml:"route_timeout_seconds"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Load reads configuration env-first. A .env file fills missing variables,
// and CONFIG_FILE may point at a YAML overlay applied before env defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.APIPort = mustEnv("API_PORT", pick(cfg.APIPort, "8000"))
	cfg.LogLevel = mustEnv("LOG_LEVEL", pick(cfg.LogLevel, "info"))
	cfg.AllowedOrigins = mustEnv("ALLOWED_ORIGINS", pick(cfg.AllowedOrigins, "*"))

	cfg.CorpusRoot = mustEnv("CORPUS_ROOT", pick(cfg.CorpusRoot, "./data/corpus"))
	cfg.IndexPath = mustEnv("INDEX_PATH", pick(cfg.IndexPath, "./data/index/corpus.idx"))
	cfg.SessionDBPath = mustEnv("SESSION_DB_PATH", pick(cfg.SessionDBPath, "./data/sessions.db"))

	cfg.SessionTTLHours = mustEnvInt("SESSION_TTL_HOURS", pickInt(cfg.SessionTTLHours, 24))
	cfg.SessionTurnLimit = mustEnvInt("SESSION_TURN_LIMIT", pickInt(cfg.SessionTurnLimit, 10))

	cfg.ChunkSize = mustEnvInt("CHUNK_SIZE", pickInt(cfg.ChunkSize, 220))
	cfg.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", pickInt(cfg.ChunkOverlap, 40))
	cfg.EmbedBatchSize = mustEnvInt("EMBED_BATCH_SIZE", pickInt(cfg.EmbedBatchSize, 32))

	cfg.TopKDefault = mustEnvInt("TOP_K", pickInt(cfg.TopKDefault, 6))
	cfg.TopKMax = mustEnvInt("TOP_K_MAX", pickInt(cfg.TopKMax, 20))
	cfg.MaxQueryChars = mustEnvInt("MAX_QUERY_CHARS", pickInt(cfg.MaxQueryChars, 4000))
	cfg.MinScore = mustEnvFloat("MIN_SCORE", pickFloat(cfg.MinScore, 0.3))

	cfg.EmbeddingBackend = mustEnv("EMBEDDING_BACKEND", pick(cfg.EmbeddingBackend, "ollama"))
	cfg.GenerationBackend = mustEnv("GENERATION_BACKEND", pick(cfg.GenerationBackend, "ollama"))

	cfg.OllamaURL = mustEnv("OLLAMA_URL", pick(cfg.OllamaURL, "http://localhost:11434"))
	cfg.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", pick(cfg.OllamaGenModel, "llama3.1:8b"))
	cfg.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", pick(cfg.OllamaEmbedModel, "nomic-embed-text"))

	cfg.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIGenModel = mustEnv("OPENAI_GEN_MODEL", pick(cfg.OpenAIGenModel, "gpt-4o-mini"))
	cfg.OpenAIEmbedModel = mustEnv("OPENAI_EMBED_MODEL", pick(cfg.OpenAIEmbedModel, "text-embedding-3-small"))

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", pick(cfg.NATSSubject, "index.rebuilt"))

	cfg.EmbedTimeoutSeconds = mustEnvInt("EMBED_TIMEOUT_SECONDS", pickInt(cfg.EmbedTimeoutSeconds, 30))
	cfg.AnswerTimeoutSeconds = mustEnvInt("ANSWER_TIMEOUT_SECONDS", pickInt(cfg.AnswerTimeoutSeconds, 120))
	cfg.RouteTimeoutSeconds = mustEnvInt("ROUTE_TIMEOUT_SECONDS", pickInt(cfg.RouteTimeoutSeconds, 20))

	cfg.RateLimitRPS = mustEnvFloat("RATE_LIMIT_RPS", pickFloat(cfg.RateLimitRPS, 5))
	cfg.RateLimitBurst = mustEnvInt("RATE_LIMIT_BURST", pickInt(cfg.RateLimitBurst, 10))

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Config{}, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.TopKDefault <= 0 || cfg.TopKDefault > cfg.TopKMax {
		return Config{}, fmt.Errorf("top_k default %d must be in 1..%d", cfg.TopKDefault, cfg.TopKMax)
	}
	return cfg, nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutSeconds) * time.Second
}

func (c Config) AnswerTimeout() time.Duration {
	return time.Duration(c.AnswerTimeoutSeconds) * time.Second
}

func (c Config) RouteTimeout() time.Duration {
	return time.Duration(c.RouteTimeoutSeconds) * time.Second
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func pickInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func pickFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
