package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tutor-rag/internal/models"
)

type Config struct {
	Documents DocumentsConfig `yaml:"documents"`
	RAG       RAGConfig       `yaml:"rag"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	ChatLLM   LLMConfig       `yaml:"chat_llm"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
}

type DocumentsConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	MinChunkLength      int     `yaml:"min_chunk_length"`
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	ContextBudget       int     `yaml:"context_budget"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"` // "ollama" or "openai"
	BaseURL        string  `yaml:"base_url"`
	Key            string  `yaml:"key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxAttempts    int     `yaml:"max_attempts"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StoreConfig struct {
	Backend    string `yaml:"backend"` // "chromem" or "postgres"
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type DatabaseConfig struct {
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Documents.Dir == "" {
		c.Documents.Dir = "./data"
	}
	if c.Documents.Pattern == "" {
		c.Documents.Pattern = "iesc*.pdf"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.MinChunkLength == 0 {
		c.RAG.MinChunkLength = 50
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.SimilarityThreshold == 0 {
		c.RAG.SimilarityThreshold = 0.4
	}
	if c.RAG.ContextBudget == 0 {
		c.RAG.ContextBudget = 6000
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "chromem"
	}
	if c.Store.Path == "" {
		c.Store.Path = "./data/vectordb"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "textbook_chunks"
	}
	if c.ChatLLM.Temperature == 0 {
		c.ChatLLM.Temperature = 0.7
	}
	if c.ChatLLM.MaxTokens == 0 {
		c.ChatLLM.MaxTokens = 500
	}
	if c.ChatLLM.TimeoutSeconds == 0 {
		c.ChatLLM.TimeoutSeconds = 60
	}
	if c.ChatLLM.MaxAttempts == 0 {
		c.ChatLLM.MaxAttempts = 3
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.TimeoutSeconds == 0 {
		c.EmbedLLM.TimeoutSeconds = 30
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
}

// Validate fails startup on missing credentials instead of surfacing
// the problem per query.
func (c *Config) Validate() error {
	if c.EmbedLLM.Model == "" {
		return &models.ConfigurationError{Field: "embed_llm.model", Reason: "embedding model is required"}
	}
	if c.ChatLLM.Model == "" {
		return &models.ConfigurationError{Field: "chat_llm.model", Reason: "inference model is required"}
	}
	if c.ChatLLM.Provider != "ollama" && c.ChatLLM.Key == "" {
		return &models.ConfigurationError{Field: "chat_llm.key", Reason: "API key is required for non-local providers"}
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return &models.ConfigurationError{Field: "rag.chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if c.Store.Backend != "chromem" && c.Store.Backend != "postgres" {
		return &models.ConfigurationError{Field: "store.backend", Reason: "must be \"chromem\" or \"postgres\""}
	}
	if c.Store.Backend == "postgres" && c.Database.DSN == "" {
		return &models.ConfigurationError{Field: "database.dsn", Reason: "required for the postgres backend"}
	}
	return nil
}
