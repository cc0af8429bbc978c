// Package chatdex provides a small HTTP client for the chatdex API.
package chatdex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second

// ChatMessage is one turn of a conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a stored chat history.
type Conversation struct {
	ID       string        `json:"conversation_id"`
	Messages []ChatMessage `json:"chat_history"`
}

// ChatRequest is one user turn.
type ChatRequest struct {
	UserQuery       string `json:"user_query"`
	ConversationID  string `json:"conversation_id,omitempty"`
	EnableReasoning *bool  `json:"enable_reasoning,omitempty"`
}

// Document is one retrieval hit returned alongside the answer.
type Document struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
}

// Evaluations carries retrieval quality statistics for a turn. Pointers are
// nil when the server could not compute the statistic.
type Evaluations struct {
	MeanInterDocSimilarity   *float64 `json:"retrieved_examples_mean_similarity"`
	MedianInterDocSimilarity *float64 `json:"retrieved_examples_median_similarity"`
	MeanQuerySimilarity      *float64 `json:"query_mean_similarity"`
	MedianQuerySimilarity    *float64 `json:"query_median_similarity"`
}

// ChatResponse is the outcome of one processed turn.
type ChatResponse struct {
	ConversationID  string      `json:"conversation_id"`
	Answer          string      `json:"answer"`
	Reasoning       *string     `json:"reasoning,omitempty"`
	SummarizedQuery string      `json:"summarized_query,omitempty"`
	Documents       []Document  `json:"documents,omitempty"`
	Evaluations     Evaluations `json:"evaluations"`
	Success         bool        `json:"success"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatdex: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Client talks to a chatdex API server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProcessChat sends one user turn and returns the generated answer.
func (c *Client) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return ChatResponse{}, err
	}
	return resp, nil
}

// GetConversation fetches a stored chat history.
func (c *Client) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var conv Conversation
	path := "/conversations/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("chatdex: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("chatdex: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chatdex: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "internal_error", Message: "internal error"}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("chatdex: decode response: %w", err)
		}
	}
	return nil
}
