package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

func chatCompletionWithToolCall(t *testing.T, args string) map[string]any {
	t.Helper()
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index": 0,
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []map[string]any{{
					"id":   "call-1",
					"type": "function",
					"function": map[string]any{
						"name":      responseToolName,
						"arguments": args,
					},
				}},
			},
			"finish_reason": "tool_calls",
		}},
	}
}

func newTestGenerator(baseURL string) *OpenAIGenerator {
	return NewOpenAIGenerator(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-model",
		Provider: "openai",
		Logger:   zap.NewNop(),
	})
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		History:         []domain.Message{{Role: domain.RoleUser, Content: "refund policy?"}},
		SummarizedQuery: "what is the refund policy",
	}
}

func TestOpenAIGenerator_ToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Tools []struct {
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tools"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != responseToolName {
			t.Errorf("expected the response tool to be offered, got %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionWithToolCall(t,
			`{"response":"Refunds within 30 days.","reasoning":"Stated in the QnA."}`))
	}))
	defer server.Close()

	gen := newTestGenerator(server.URL)

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

func TestOpenAIGenerator_PlainContentFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-2",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": "Refunds within 30 days.\nReasoning: stated in the QnA.",
				},
				"finish_reason": "stop",
			}},
		})
	}))
	defer server.Close()

	gen := newTestGenerator(server.URL)

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Answer != "Refunds within 30 days." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Reasoning != "stated in the QnA." {
		t.Errorf("reasoning = %q", result.Reasoning)
	}
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "backend exploded", "type": "server_error"},
		})
	}))
	defer server.Close()

	gen := newTestGenerator(server.URL)

	_, err := gen.Generate(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestSummarizer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 {
			t.Fatalf("expected one prompt message, got %d", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-3",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": "  While logging in, I see an error message.  ",
				},
				"finish_reason": "stop",
			}},
		})
	}))
	defer server.Close()

	sum := NewSummarizer(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	got, err := sum.Summarize(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "I'm having trouble logging in."},
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "While logging in, I see an error message." {
		t.Errorf("summary = %q", got)
	}
}

func TestSummarizer_EmptyHistory(t *testing.T) {
	sum := NewSummarizer(&Config{APIKey: "k", BaseURL: "http://unused", Model: "m", Logger: zap.NewNop()})

	got, err := sum.Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
}
