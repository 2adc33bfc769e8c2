package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pdf-chatbot/internal/models"
)

const (
	BackendChromem  = "chromem"
	BackendPostgres = "postgres"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	DocsDir   string         `yaml:"docs_dir"`
	Ingest    IngestConfig   `yaml:"ingest"`
	RAG       RAGConfig      `yaml:"rag"`
	Index     IndexConfig    `yaml:"index"`
	EmbedLLM  LLMConfig      `yaml:"embed_llm"`
	InferLLM  LLMConfig      `yaml:"inference_llm"`
	Database  DatabaseConfig `yaml:"database"`
	Server    ServerConfig   `yaml:"server"`
	Log       LogConfig      `yaml:"log"`
	Questions []string       `yaml:"questions"`
}

type IngestConfig struct {
	Extensions []string `yaml:"extensions"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	TopK          int    `yaml:"top_k"`
	MemoryTurns   int    `yaml:"memory_turns"`
	RoleStatement string `yaml:"role_statement"`
	EmbedBatch    int    `yaml:"embed_batch"`
}

type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	Name          string `yaml:"name"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	Key            string  `yaml:"key"`
	KeyEnv         string  `yaml:"key_env"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

const (
	DefaultChunkOverlap = 100
	DefaultTemperature  = 0.5
)

// newConfig presets the defaults for which zero is a meaningful value, so only an
// absent key falls back to them
func newConfig() Config {
	return Config{
		RAG:      RAGConfig{ChunkOverlap: DefaultChunkOverlap},
		InferLLM: LLMConfig{Temperature: DefaultTemperature},
	}
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := newConfig()
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills the zero fields that have no meaningful zero value
func ApplyDefaults(cfg *Config) {
	if cfg.DocsDir == "" {
		cfg.DocsDir = "./pdf"
	}
	if len(cfg.Ingest.Extensions) == 0 {
		cfg.Ingest.Extensions = []string{".pdf"}
	}
	for i, ext := range cfg.Ingest.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Ingest.Extensions[i] = ext
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 700
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.MemoryTurns == 0 {
		cfg.RAG.MemoryTurns = 3
	}
	if cfg.RAG.RoleStatement == "" {
		cfg.RAG.RoleStatement = models.DefaultRoleStatement
	}
	if cfg.RAG.EmbedBatch == 0 {
		cfg.RAG.EmbedBatch = 32
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendChromem
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "./vector-store"
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "nlp"
	}

	applyLLMDefaults(&cfg.EmbedLLM, "text-embedding-3-small")
	applyLLMDefaults(&cfg.InferLLM, "gpt-4o")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8501"
	}
	if len(cfg.Questions) == 0 {
		cfg.Questions = append([]string(nil), models.DefaultQuestions...)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyLLMDefaults(c *LLMConfig, model string) {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.KeyEnv == "" && c.Provider == ProviderOpenAI {
		c.KeyEnv = "OPENAI_API_KEY"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.RAG.MemoryTurns <= 0 {
		return fmt.Errorf("rag.memory_turns must be positive, got %d", c.RAG.MemoryTurns)
	}
	switch c.Index.Backend {
	case BackendChromem:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown index backend: %s", c.Index.Backend)
	}
	if k := c.Index.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("index.encryption_key must be 32 bytes, got %d", len(k))
	}
	for _, llm := range []LLMConfig{c.EmbedLLM, c.InferLLM} {
		if llm.Provider != ProviderOpenAI && llm.Provider != ProviderOllama {
			return fmt.Errorf("unknown llm provider: %s", llm.Provider)
		}
	}
	return nil
}

// APIKey resolves the key from the config value or the named env var
func (c LLMConfig) APIKey() string {
	if c.Key != "" {
		return strings.TrimPrefix(c.Key, "Bearer ")
	}
	if c.KeyEnv != "" {
		return os.Getenv(c.KeyEnv)
	}
	return ""
}
