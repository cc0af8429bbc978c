package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/config"
	"github.com/kailas-cloud/chatdex/internal/domain"
	"github.com/kailas-cloud/chatdex/internal/index/qdrant"
	logpkg "github.com/kailas-cloud/chatdex/internal/logger"
	"github.com/kailas-cloud/chatdex/internal/metrics"
	openaiEmb "github.com/kailas-cloud/chatdex/internal/transport/openai"
	"github.com/kailas-cloud/chatdex/internal/version"
)

const batchSize = 64

func main() {
	input := flag.String("input", "", "CSV file with question,answer columns")
	collection := flag.String("collection", "", "target collection (default: from config)")
	flag.Parse()

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

	if *input == "" {
		logger.Fatal("Missing required -input flag")
	}
	if *collection == "" {
		*collection = cfg.Qdrant.Collection
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *input, *collection); err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, input, collection string) error {
	logger.Info("Starting ingestion",
		zap.String("version", version.Version),
		zap.String("input", input),
		zap.String("collection", collection),
	)

	docs, err := readDocuments(input)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents in %s", input)
	}
	logger.Info("Documents loaded", zap.Int("count", len(docs)))

	metrics.RegisterEmbeddingMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	index, err := qdrant.NewIndex(qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("create vector index client: %w", err)
	}
	defer func() { _ = index.Close() }()

	exists, err := index.Exists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if err := index.Create(ctx, collection, cfg.Embedding.Dimensions); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		logger.Info("Collection created",
			zap.String("collection", collection),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	var totalTokens int
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.CompositeText()
		}

		res, err := embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		for i := range batch {
			batch[i].Vector = res.Embeddings[i]
		}
		totalTokens += res.TotalTokens

		if err := index.Upsert(ctx, collection, batch); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		logger.Info("Batch ingested", zap.Int("from", start), zap.Int("to", end))
	}

	logger.Info("Ingestion complete",
		zap.Int("documents", len(docs)),
		zap.Int("embedding_tokens", totalTokens),
	)
	return nil
}

// readDocuments parses the question/answer CSV. A header row is detected by
// column names and skipped; blank rows are dropped.
func readDocuments(path string) ([]domain.IndexedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var docs []domain.IndexedDocument
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if len(record) < 2 {
			continue
		}

		question := strings.TrimSpace(record[0])
		answer := strings.TrimSpace(record[1])
		if first {
			first = false
			if strings.EqualFold(question, "question") {
				continue
			}
		}
		if question == "" && answer == "" {
			continue
		}

		docs = append(docs, domain.IndexedDocument{
			ID:       uuid.NewString(),
			Question: question,
			Answer:   answer,
		})
	}
	return docs, nil
}
