package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`        // Application name
	Environment string `yaml:"environment"` // e.g. "development", "production"
}

// LoggerConfig controls the log level.
type LoggerConfig struct {
	Level string `yaml:"level"` // e.g. "info", "debug", "warn", "error"
}

// EmbeddingConfig selects and configures the embedding model provider.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`       // "openai", "gemini", "ollama" or "hash"
	Model          string `yaml:"model"`          // Model name, e.g. "text-embedding-3-small"
	APIKey         string `yaml:"apiKey"`         // API key; may also come from the environment
	BaseURL        string `yaml:"baseURL"`        // Optional service base URL (ollama, proxies)
	Dimension      int    `yaml:"dimension"`      // Fixed vector dimension D produced by the model
	MaxConcurrency int    `yaml:"maxConcurrency"` // Ingestion worker bound; embedding calls dominate
}

// LLMConfig selects and configures the language-model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai", "gemini" or "ollama"
	Model    string `yaml:"model"`    // Model name, e.g. "gpt-4o-mini"
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
}

// LocalStoreConfig configures the file-backed vector store.
type LocalStoreConfig struct {
	Path string `yaml:"path"` // Directory holding one snapshot file per collection
}

// MilvusStoreConfig configures the Milvus-backed vector store.
type MilvusStoreConfig struct {
	Address string `yaml:"address"` // Milvus service address
}

// VectorStoreConfig selects the vector index backend and the target collection.
type VectorStoreConfig struct {
	Backend    string            `yaml:"backend"`    // "local" or "milvus"
	Collection string            `yaml:"collection"` // Collection name, e.g. "financial_data"
	Local      LocalStoreConfig  `yaml:"local"`
	Milvus     MilvusStoreConfig `yaml:"milvus"`
}

// ChatConfig tunes the conversational session.
type ChatConfig struct {
	TopK int `yaml:"topK"` // Context documents retrieved per question
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App         AppInfo           `yaml:"app"`
	Logger      LoggerConfig      `yaml:"logger"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vectorstore"`
	Chat        ChatConfig        `yaml:"chat"`
}

// Defaults applied when the file leaves optional settings empty.
const (
	DefaultCollection     = "financial_data"
	DefaultLocalPath      = "./vector_data"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultChatTopK       = 4
	DefaultMaxConcurrency = 4
)

// LoadConfig reads and parses the YAML configuration file at path, applies
// environment-variable overrides for credentials, and fills in defaults.
// It does not validate; call Validate before constructing components.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets credentials and endpoints come from the environment
// so they never need to live in the config file.
func (c *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("OPENAI_DEPLOYMENT_ENDPOINT"); v != "" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_DEPLOYMENT_NAME"); v != "" && c.LLM.Model == "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
		if c.Embedding.Provider == "gemini" && c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
}

func (c *AppConfig) applyDefaults() {
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = DefaultCollection
	}
	if c.VectorStore.Local.Path == "" {
		c.VectorStore.Local.Path = DefaultLocalPath
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel
	}
	if c.Chat.TopK <= 0 {
		c.Chat.TopK = DefaultChatTopK
	}
	if c.Embedding.MaxConcurrency <= 0 {
		c.Embedding.MaxConcurrency = DefaultMaxConcurrency
	}
}

// Validate checks that the startup configuration is complete. A non-nil error
// is fatal: sessions and stores must not be constructed from a config that
// fails validation.
func (c *AppConfig) Validate() error {
	if c.Embedding.Provider == "" {
		return fmt.Errorf("embedding.provider is required")
	}
	if c.Embedding.Provider != "hash" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required for provider '%s'", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	switch c.Embedding.Provider {
	case "openai", "gemini":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.apiKey is required for provider '%s'", c.Embedding.Provider)
		}
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.apiKey is required for provider '%s'", c.LLM.Provider)
		}
	}

	switch c.VectorStore.Backend {
	case "local":
		if c.VectorStore.Local.Path == "" {
			return fmt.Errorf("vectorstore.local.path is required")
		}
	case "milvus":
		if c.VectorStore.Milvus.Address == "" {
			return fmt.Errorf("vectorstore.milvus.address is required")
		}
	default:
		return fmt.Errorf("unsupported vectorstore backend: '%s'", c.VectorStore.Backend)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vectorstore.collection is required")
	}
	return nil
}
