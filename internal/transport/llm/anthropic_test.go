package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
)

func TestAnthropicGenerator_ToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("unexpected api key header: %s", r.Header.Get("X-Api-Key"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg-1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{{
				"type": "tool_use",
				"id":   "toolu-1",
				"name": responseToolName,
				"input": map[string]any{
					"response":  "Refunds within 30 days.",
					"reasoning": "Stated in the QnA.",
				},
			}},
			"model":       "test-model",
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer server.Close()

	gen := NewAnthropicGenerator(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "anthropic",
		Logger:   zap.NewNop(),
	})

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Answer != "Refunds within 30 days." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Reasoning != "Stated in the QnA." {
		t.Errorf("reasoning = %q", result.Reasoning)
	}
}

func TestAnthropicGenerator_TextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg-2",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{{
				"type": "text",
				"text": "Refunds within 30 days.",
			}},
			"model":       "test-model",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer server.Close()

	gen := NewAnthropicGenerator(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "anthropic",
		Logger:   zap.NewNop(),
	})

	result, err := gen.Generate(context.Background(), domain.GenerationRequest{
		History: []domain.Message{{Role: domain.RoleUser, Content: "refund policy?"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Answer != "Refunds within 30 days." {
		t.Errorf("answer = %q", result.Answer)
	}
}
