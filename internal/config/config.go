package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration, sourced from environment variables
// and an optional config file.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	RAG     RAGConfig     `mapstructure:"rag"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Qdrant  QdrantConfig  `mapstructure:"qdrant"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type RAGConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	MaxChunks           int     `mapstructure:"max_chunks"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ChatModel      string `mapstructure:"chat_model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
}

// EmbeddingDimension derives the vector dimension from the embedding model.
func (c OpenAIConfig) EmbeddingDimension() int {
	switch c.EmbeddingModel {
	case "text-embedding-3-large":
		return 3072
	default:
		// text-embedding-3-small, text-embedding-ada-002
		return 1536
	}
}

type MemoryConfig struct {
	MaxTokens        int `mapstructure:"max_tokens"`
	MaxMessages      int `mapstructure:"max_messages"`
	SummaryThreshold int `mapstructure:"summary_threshold"`
	EntityThreshold  int `mapstructure:"entity_threshold"`
}

type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// Addr returns the host:port gRPC target.
func (c QdrantConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

type StorageConfig struct {
	Root   string `mapstructure:"root"`
	Bucket string `mapstructure:"bucket"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the documented flat names, e.g.
// RAG_CHUNK_SIZE, OPENAI_CHAT_MODEL, MEMORY_MAX_TOKENS, QDRANT_HOST.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("mentoria")
	v.SetConfigType("toml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.mentoria")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)

	v.SetDefault("rag.chunk_size", 1000)
	v.SetDefault("rag.chunk_overlap", 200)
	v.SetDefault("rag.max_chunks", 5)
	v.SetDefault("rag.similarity_threshold", 0.4)

	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 4000)

	v.SetDefault("memory.max_tokens", 1500)
	v.SetDefault("memory.max_messages", 20)
	v.SetDefault("memory.summary_threshold", 10)
	v.SetDefault("memory.entity_threshold", 2)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)

	v.SetDefault("storage.root", "./data/objects")
	v.SetDefault("storage.bucket", "mentoria")

	v.SetDefault("db.path", "./data/mentoria.db")
}

func bindEnvVars(v *viper.Viper) {
	bindings := map[string]string{
		"server.host": "SERVER_HOST",
		"server.port": "SERVER_PORT",

		"rag.chunk_size":           "RAG_CHUNK_SIZE",
		"rag.chunk_overlap":        "RAG_CHUNK_OVERLAP",
		"rag.max_chunks":           "RAG_MAX_CHUNKS",
		"rag.similarity_threshold": "RAG_SIMILARITY_THRESHOLD",

		"openai.api_key":         "OPENAI_API_KEY",
		"openai.base_url":        "OPENAI_BASE_URL",
		"openai.embedding_model": "OPENAI_EMBEDDING_MODEL",
		"openai.chat_model":      "OPENAI_CHAT_MODEL",
		"openai.max_tokens":      "OPENAI_MAX_TOKENS",

		"memory.max_tokens":        "MEMORY_MAX_TOKENS",
		"memory.max_messages":      "MEMORY_MAX_MESSAGES",
		"memory.summary_threshold": "MEMORY_SUMMARY_THRESHOLD",
		"memory.entity_threshold":  "MEMORY_ENTITY_THRESHOLD",

		"qdrant.host":    "QDRANT_HOST",
		"qdrant.port":    "QDRANT_PORT",
		"qdrant.api_key": "QDRANT_API_KEY",

		"storage.root":   "STORAGE_ROOT",
		"storage.bucket": "STORAGE_BUCKET",

		"db.path": "DB_PATH",
	}
	for key, env := range bindings {
		// BindEnv only errors on empty input.
		_ = v.BindEnv(key, env)
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk overlap must be between 0 and chunk size: %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.MaxChunks <= 0 {
		return fmt.Errorf("max chunks must be positive: %d", c.RAG.MaxChunks)
	}
	if c.RAG.SimilarityThreshold < 0 || c.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be within [0,1]: %f", c.RAG.SimilarityThreshold)
	}
	if c.OpenAI.EmbeddingModel == "" {
		return fmt.Errorf("embedding model cannot be empty")
	}
	if c.OpenAI.ChatModel == "" {
		return fmt.Errorf("chat model cannot be empty")
	}
	if c.Memory.MaxTokens <= 0 {
		return fmt.Errorf("memory max tokens must be positive: %d", c.Memory.MaxTokens)
	}
	if c.Memory.MaxMessages <= 0 {
		return fmt.Errorf("memory max messages must be positive: %d", c.Memory.MaxMessages)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant host cannot be empty")
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("storage root cannot be empty")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}
