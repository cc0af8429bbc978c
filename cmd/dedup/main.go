package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chatdex/internal/config"
	"github.com/kailas-cloud/chatdex/internal/index/qdrant"
	logpkg "github.com/kailas-cloud/chatdex/internal/logger"
	dedupuc "github.com/kailas-cloud/chatdex/internal/usecase/dedup"
	"github.com/kailas-cloud/chatdex/internal/version"
)

func main() {
	collection := flag.String("collection", "", "collection to group (default: from config)")
	threshold := flag.Float64("threshold", 0, "similarity edge threshold (default: from config)")
	seedLimit := flag.Int("seed-limit", 0, "number of scanned documents used as exploration seeds (default: from config)")
	output := flag.String("output", "grouped_duplicates.csv", "report output path")
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

	// Flags override config.
	if *collection == "" {
		*collection = cfg.Qdrant.Collection
	}
	if *threshold == 0 {
		*threshold = cfg.Grouping.Threshold
	}
	if *seedLimit == 0 {
		*seedLimit = cfg.Grouping.SeedLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *collection, *threshold, *seedLimit, *output); err != nil {
		logger.Fatal("Grouping run failed", zap.Error(err))
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	collection string,
	threshold float64,
	seedLimit int,
	output string,
) error {
	logger.Info("Starting duplicate grouping run",
		zap.String("version", version.Version),
		zap.String("collection", collection),
		zap.Float64("threshold", threshold),
		zap.Int("seed_limit", seedLimit),
	)

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

	svc := dedupuc.New(index, logger).
		WithLimits(cfg.Grouping.ScrollLimit, cfg.Grouping.SearchLimit)

	report, err := svc.GroupDuplicates(ctx, collection, threshold, seedLimit)
	if err != nil {
		// A cancelled run still writes what it grouped so far.
		if ctx.Err() == nil || report == nil || len(report.Rows) == 0 {
			return fmt.Errorf("group duplicates: %w", err)
		}
		logger.Warn("Run interrupted, writing partial report",
			zap.Int("rows", len(report.Rows)), zap.Error(err))
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := report.WriteCSV(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("Report written",
		zap.String("path", output),
		zap.Int("rows", len(report.Rows)),
	)
	return nil
}
