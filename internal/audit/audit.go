// Package audit records one terminal ingestion event per processed file.
// Events are appended to a newline-delimited JSON log, written once and
// never mutated, and optionally mirrored to a Kafka topic for downstream
// consumers.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pokertrack/summary-importer/pkg/kafka"
)

// Status is the terminal outcome of one file.
type Status string

const (
	StatusInserted    Status = "inserted"
	StatusDuplicate   Status = "duplicate"
	StatusNeedsReview Status = "needs_review"
	StatusError       Status = "error"
	StatusDryRun      Status = "dry_run"
)

// Event is one terminal ingestion record. Pointer fields serialise as
// explicit nulls until populated.
type Event struct {
	FileName     string   `json:"file_name"`
	FileHash     *string  `json:"file_hash"`
	Status       Status   `json:"status"`
	Reason       string   `json:"reason"`
	TournamentID *int64   `json:"tournament_id"`
	StartTime    *string  `json:"start_time"`
	BuyIn        *float64 `json:"buy_in"`
	Payout       *float64 `json:"payout"`
	Timestamp    string   `json:"timestamp"`
}

// Log appends ingestion events to a JSONL file and, when a producer is
// configured, mirrors each event to Kafka. Mirror failures are logged and
// never alter the recorded outcome.
type Log struct {
	path     string
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewLog creates a Log writing to path. producer may be nil.
func NewLog(path string, producer *kafka.Producer) *Log {
	return &Log{
		path:     path,
		producer: producer,
		logger:   slog.Default().With("component", "audit-log"),
	}
}

// Write stamps the event with a second-precision timestamp and appends it as
// one JSON line. Each call opens, appends, and closes the file so records
// from earlier runs are never rewritten.
func (l *Log) Write(ctx context.Context, event *Event) error {
	event.Timestamp = time.Now().Format("2006-01-02T15:04:05")

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling ingestion event: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending to audit log: %w", err)
	}

	if l.producer != nil {
		key := event.FileName
		if event.FileHash != nil {
			key = *event.FileHash
		}
		if err := l.producer.Publish(ctx, kafka.Event{Key: key, Value: event}); err != nil {
			l.logger.Error("failed to mirror ingestion event",
				"file_name", event.FileName,
				"status", event.Status,
				"error", err,
			)
		}
	}
	return nil
}
