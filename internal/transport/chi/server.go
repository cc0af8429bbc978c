package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/domain"
	chatuc "github.com/kailas-cloud/chatdex/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/chatdex/internal/usecase/health"
)

// ErrorCode classifies API error responses.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeConversationNotFound   ErrorCode = "conversation_not_found"
	CodeCollectionNotFound     ErrorCode = "collection_not_found"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeIndexUnavailable       ErrorCode = "index_unavailable"
	CodeGenerationFailed       ErrorCode = "generation_failed"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the chat pipeline over HTTP.
type Server struct {
	chat          *chatuc.Service
	conversations chatuc.Conversations
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	conversations chatuc.Conversations,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:          chat,
		conversations: conversations,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrQueryTooLong, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrConversationNotFound, http.StatusNotFound, CodeConversationNotFound),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusBadGateway, CodeIndexUnavailable),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationFailed),
	}
	return s
}

// Routes mounts all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/chat", s.ProcessChat)
	r.Get("/conversations/{id}", s.GetConversation)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// ChatRequest is the POST /chat request body.
type ChatRequest struct {
	UserQuery       string `json:"user_query"`
	ConversationID  string `json:"conversation_id,omitempty"`
	EnableReasoning *bool  `json:"enable_reasoning,omitempty"`
}

// ChatResponse is the POST /chat response body.
type ChatResponse struct {
	ConversationID  string                   `json:"conversation_id"`
	Answer          string                   `json:"answer"`
	Reasoning       *string                  `json:"reasoning,omitempty"`
	SummarizedQuery string                   `json:"summarized_query,omitempty"`
	Documents       []domain.ScoredCandidate `json:"documents,omitempty"`
	Evaluations     chatuc.Evaluations       `json:"evaluations"`
	Success         bool                     `json:"success"`
}

// ProcessChat handles POST /chat.
func (s *Server) ProcessChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Reasoning defaults to on when the field is omitted.
	enableReasoning := true
	if req.EnableReasoning != nil {
		enableReasoning = *req.EnableReasoning
	}

	result, err := s.chat.ProcessChat(r.Context(), chatuc.Request{
		ConversationID:  req.ConversationID,
		Query:           req.UserQuery,
		EnableReasoning: enableReasoning,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := ChatResponse{
		ConversationID:  result.ConversationID,
		Answer:          result.Answer,
		SummarizedQuery: result.SummarizedQuery,
		Documents:       result.Documents,
		Evaluations:     result.Evaluations,
		Success:         result.Success,
	}
	if enableReasoning {
		reasoning := result.Reasoning
		resp.Reasoning = &reasoning
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Conversation id is required")
		return
	}

	conv, err := s.conversations.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrQueryTooLong,
		domain.ErrConversationNotFound,
		domain.ErrCollectionNotFound,
		domain.ErrEmbeddingUnavailable,
		domain.ErrIndexUnavailable,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
