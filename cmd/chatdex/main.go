package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/config"
	dbRedis "github.com/kailas-cloud/chatdex/internal/db/redis"
	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/index/qdrant"
	logpkg "github.com/kailas-cloud/chatdex/internal/logger"
	"github.com/kailas-cloud/chatdex/internal/metrics"
	conversationrepo "github.com/kailas-cloud/chatdex/internal/repository/conversation"
	"github.com/kailas-cloud/chatdex/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/chatdex/internal/transport/chi"
	"github.com/kailas-cloud/chatdex/internal/transport/llm"
	openaiEmb "github.com/kailas-cloud/chatdex/internal/transport/openai"
	chatuc "github.com/kailas-cloud/chatdex/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/chatdex/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/chatdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/chatdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting chatdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	// All conversation and cache keys share the configured prefix.
	domain.KeyPrefix = cfg.Storage.KeyPrefix

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	index, err := qdrant.NewIndex(qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		logger.Fatal("Failed to create vector index client", zap.Error(err))
	}
	defer func() { _ = index.Close() }()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Embedder chain: OpenAI -> Cached. The cache key includes the model, so
	// a model change invalidates naturally.
	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	cachedEmbedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	retriever := retrievaluc.New(index, cachedEmbedder, cachedEmbedder).
		WithNucleus(cfg.Retrieval.TopP, cfg.Retrieval.Temperature)

	generator, err := buildGenerator(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}
	summarizer := llm.NewSummarizer(&llm.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  summarizerBaseURL(cfg.LLM),
		Model:    cfg.LLM.SummarizeModel,
		Provider: cfg.LLM.Provider,
		Logger:   logger,
	})

	conversations := conversationrepo.New(store)

	chatSvc := chatuc.New(
		retriever, generator, summarizer, conversations,
		cfg.Qdrant.Collection, cfg.Retrieval.TopK,
	)
	healthSvc := healthuc.New(store, index, baseEmbedder)

	server := chiTransport.NewServer(chatSvc, conversations, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildGenerator selects the answering provider. Groq speaks the OpenAI wire
// protocol, so it reuses the OpenAI generator with a different base URL.
func buildGenerator(cfg config.LLMConfig, logger *zap.Logger) (domain.Generator, error) {
	llmCfg := &llm.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Logger:   logger,
	}

	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIGenerator(llmCfg), nil
	case "groq":
		if llmCfg.BaseURL == "" {
			llmCfg.BaseURL = llm.GroqBaseURL
		}
		return llm.NewOpenAIGenerator(llmCfg), nil
	case "anthropic":
		return llm.NewAnthropicGenerator(llmCfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// summarizerBaseURL resolves the endpoint for the summarization model, which
// always goes through an OpenAI-compatible API.
func summarizerBaseURL(cfg config.LLMConfig) string {
	if cfg.BaseURL != "" && cfg.Provider != "anthropic" {
		return cfg.BaseURL
	}
	if cfg.Provider == "groq" {
		return llm.GroqBaseURL
	}
	return ""
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
