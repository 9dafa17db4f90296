// Command importer runs one batch import of tournament summary files.
//
// It scans the configured input directory for summary files, clusters the
// parsed results into sessions, records them in PostgreSQL, and routes each
// file into the processed, needs-review, or duplicate folder. One JSONL
// audit record is written per file.
//
// Usage:
//
//	go run ./cmd/importer [-config configs/development.yaml] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/pokertrack/summary-importer/internal/audit"
	"github.com/pokertrack/summary-importer/internal/dedup"
	"github.com/pokertrack/summary-importer/internal/files"
	"github.com/pokertrack/summary-importer/internal/importer"
	"github.com/pokertrack/summary-importer/internal/store"
	"github.com/pokertrack/summary-importer/pkg/config"
	"github.com/pokertrack/summary-importer/pkg/kafka"
	"github.com/pokertrack/summary-importer/pkg/logger"
	"github.com/pokertrack/summary-importer/pkg/metrics"
	"github.com/pokertrack/summary-importer/pkg/postgres"
	pkgredis "github.com/pokertrack/summary-importer/pkg/redis"
)

// main loads configuration, connects to PostgreSQL, wires the optional
// seen-hash cache and audit mirror, runs the pipeline once, and prints the
// outcome counts.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "parse and log only; no database writes or file moves")
	flag.Parse()

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Importer.DryRun = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting tournament import",
		"site", cfg.Importer.Site,
		"input_dir", cfg.Importer.InputDir,
		"dry_run", cfg.Importer.DryRun,
		"session_gap", cfg.Importer.SessionGap,
	)

	ctx := context.Background()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(ctx)
	}

	var seen *dedup.SeenCache
	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, continuing without seen-hash cache", "error", err)
		} else {
			defer rdb.Close()
			seen = dedup.New(rdb, m)
			slog.Info("seen-hash cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		slog.Info("audit mirror enabled", "topic", cfg.Kafka.Topic)
	}

	folders := files.Resolve(cfg.Importer.InputDir, cfg.Importer.Folders, cfg.Importer.LogFileName)
	auditLog := audit.NewLog(folders.LogPath, producer)
	pipeline := importer.New(cfg.Importer, store.New(db), folders, auditLog, seen, m)

	sum, err := pipeline.Run(ctx)
	if err != nil {
		slog.Error("import aborted", "error", err)
		os.Exit(1)
	}
	fmt.Println(sum)
}
