package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validConfig = `
app:
  name: "financial-assistant"
  environment: "test"
logger:
  level: "debug"
embedding:
  provider: "hash"
  dimension: 256
llm:
  provider: "ollama"
  model: "llama3"
vectorstore:
  backend: "local"
  local:
    path: "/tmp/vectors"
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.VectorStore.Collection != DefaultCollection {
		t.Errorf("collection = %q, want default %q", cfg.VectorStore.Collection, DefaultCollection)
	}
	if cfg.Chat.TopK != DefaultChatTopK {
		t.Errorf("chat topK = %d, want default %d", cfg.Chat.TopK, DefaultChatTopK)
	}
	if cfg.Embedding.MaxConcurrency != DefaultMaxConcurrency {
		t.Errorf("maxConcurrency = %d, want default %d", cfg.Embedding.MaxConcurrency, DefaultMaxConcurrency)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing embedding provider", func(c *AppConfig) { c.Embedding.Provider = "" }},
		{"missing embedding dimension", func(c *AppConfig) { c.Embedding.Dimension = 0 }},
		{"missing llm provider", func(c *AppConfig) { c.LLM.Provider = "" }},
		{"openai without key", func(c *AppConfig) { c.LLM.Provider = "openai"; c.LLM.APIKey = "" }},
		{"unknown backend", func(c *AppConfig) { c.VectorStore.Backend = "dynamo" }},
		{"milvus without address", func(c *AppConfig) {
			c.VectorStore.Backend = "milvus"
			c.VectorStore.Milvus.Address = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, validConfig))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an incomplete config")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_DEPLOYMENT_NAME", "gpt-4o-mini-test")

	cfg, err := LoadConfig(writeConfig(t, `
embedding:
  provider: "openai"
  model: "text-embedding-3-small"
  dimension: 1536
llm:
  provider: "openai"
vectorstore:
  backend: "local"
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LLM.APIKey != "sk-test" || cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("OPENAI_API_KEY not applied: llm=%q embedding=%q", cfg.LLM.APIKey, cfg.Embedding.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini-test" {
		t.Errorf("OPENAI_DEPLOYMENT_NAME not applied: %q", cfg.LLM.Model)
	}
}
