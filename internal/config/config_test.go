package config

import (
	"os"
	"testing"
)

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		LLM: LLMConfig{Provider: "mistral"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown llm provider")
	}

	expected := `llm.provider must be "openai", "groq" or "anthropic", got "mistral"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidProviders(t *testing.T) {
	for _, provider := range []string{"openai", "groq", "anthropic"} {
		t.Run("provider="+provider, func(t *testing.T) {
			cfg := Config{
				HTTP: HTTPConfig{Port: 8080},
				Database: DatabaseConfig{
					Addrs: []string{"localhost:6379"},
				},
				LLM: LLMConfig{Provider: provider},
			}

			err := cfg.Validate()
			if err != nil {
				t.Fatalf("unexpected error for valid provider %q: %v", provider, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		LLM: LLMConfig{Provider: "openai"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
		LLM: LLMConfig{Provider: "openai"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_TopPOutOfRange(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		LLM:       LLMConfig{Provider: "openai"},
		Retrieval: RetrievalConfig{TopP: 1.5},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for top_p > 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Errorf("expected Qdrant.Port=6334, got %d", cfg.Qdrant.Port)
	}
	if cfg.Retrieval.TopK != 20 {
		t.Errorf("expected TopK=20, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.TopP != 0.9 {
		t.Errorf("expected TopP=0.9, got %v", cfg.Retrieval.TopP)
	}
	if cfg.Retrieval.Temperature != 0.1 {
		t.Errorf("expected Temperature=0.1, got %v", cfg.Retrieval.Temperature)
	}
	if cfg.Grouping.Threshold != 0.8 {
		t.Errorf("expected Threshold=0.8, got %v", cfg.Grouping.Threshold)
	}
	if cfg.Grouping.SeedLimit != 100 {
		t.Errorf("expected SeedLimit=100, got %d", cfg.Grouping.SeedLimit)
	}
	if cfg.Storage.KeyPrefix != "chatdex:" {
		t.Errorf("expected KeyPrefix='chatdex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected Provider='openai', got %q", cfg.LLM.Provider)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 120, ShutdownSec: 5},
		Database:  DatabaseConfig{ReadinessTimeout: 15},
		Retrieval: RetrievalConfig{TopK: 5, TopP: 0.5, Temperature: 0.2},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
		LLM:       LLMConfig{Provider: "groq", Model: "llama-3.3-70b"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("expected Provider='groq', got %q", cfg.LLM.Provider)
	}
}

func TestApplyDefaults_SummarizeModelFallsBackToModel(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Model: "gpt-4.1"}}
	cfg.ApplyDefaults()

	if cfg.LLM.SummarizeModel != "gpt-4.1" {
		t.Errorf("expected SummarizeModel='gpt-4.1', got %q", cfg.LLM.SummarizeModel)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CHATDEX_TEST_KEY", "sk-123")

	in := []byte("api_key: ${CHATDEX_TEST_KEY}\nmodel: ${CHATDEX_TEST_MODEL:-gpt-4.1}\n")
	out := string(expandEnvVars(in))

	expected := "api_key: sk-123\nmodel: gpt-4.1\n"
	if out != expected {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, expected)
	}
}

func TestExpandEnvVars_UnsetWithoutDefault(t *testing.T) {
	os.Unsetenv("CHATDEX_TEST_UNSET")

	out := string(expandEnvVars([]byte("password: ${CHATDEX_TEST_UNSET}")))
	if out != "password: " {
		t.Errorf("unexpected expansion: %q", out)
	}
}
