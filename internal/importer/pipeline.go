// Package importer drives the per-file ingestion pipeline: duplicate
// pre-check, parse, transactional session assignment + insert + move, and
// terminal outcome logging. Every input file ends in exactly one of the
// terminal outcomes (inserted, duplicate, needs_review, error, dry_run)
// with exactly one audit record, and no error for one file ever stops the
// batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pokertrack/summary-importer/internal/audit"
	"github.com/pokertrack/summary-importer/internal/dedup"
	"github.com/pokertrack/summary-importer/internal/files"
	"github.com/pokertrack/summary-importer/internal/fingerprint"
	"github.com/pokertrack/summary-importer/internal/session"
	"github.com/pokertrack/summary-importer/internal/store"
	"github.com/pokertrack/summary-importer/internal/summary"
	"github.com/pokertrack/summary-importer/pkg/config"
	"github.com/pokertrack/summary-importer/pkg/metrics"
)

// Store is the persistence capability the pipeline needs: a fast duplicate
// pre-check and an atomic transaction scope for assignment + insert.
type Store interface {
	HashExists(ctx context.Context, hash string) (bool, error)
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
}

// Summary counts terminal outcomes over one batch run.
type Summary struct {
	Inserted    int
	Duplicates  int
	NeedsReview int
	Errors      int
	DryRun      int
}

// String renders the one-line process summary.
func (s Summary) String() string {
	return fmt.Sprintf("Inserted: %d | Duplicates: %d | Needs Review: %d | Errors: %d",
		s.Inserted, s.Duplicates, s.NeedsReview, s.Errors)
}

// Pipeline processes one input directory sequentially.
type Pipeline struct {
	cfg     config.ImporterConfig
	store   Store
	folders files.Folders
	audit   *audit.Log
	seen    *dedup.SeenCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires a Pipeline. seen and m may be nil.
func New(cfg config.ImporterConfig, st Store, folders files.Folders, auditLog *audit.Log, seen *dedup.SeenCache, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		folders: folders,
		audit:   auditLog,
		seen:    seen,
		metrics: m,
		logger:  slog.Default().With("component", "importer"),
	}
}

// Run processes every matching file in the input directory, oldest first,
// and returns the outcome counts. Only a missing input directory aborts the
// run; per-file failures are converted to terminal error outcomes.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	info, err := os.Stat(p.cfg.InputDir)
	if err != nil || !info.IsDir() {
		return Summary{}, fmt.Errorf("input directory does not exist: %s", p.cfg.InputDir)
	}
	if err := files.EnsureDirs(p.folders); err != nil {
		return Summary{}, err
	}

	paths, err := p.listInputFiles()
	if err != nil {
		return Summary{}, err
	}
	ordered := p.orderByStartTime(paths)

	var sum Summary
	for _, path := range ordered {
		switch p.processFile(ctx, path) {
		case audit.StatusInserted:
			sum.Inserted++
		case audit.StatusDuplicate:
			sum.Duplicates++
		case audit.StatusNeedsReview:
			sum.NeedsReview++
		case audit.StatusError:
			sum.Errors++
		case audit.StatusDryRun:
			sum.DryRun++
		}
	}

	p.logger.Info("import finished",
		"files", len(ordered),
		"inserted", sum.Inserted,
		"duplicates", sum.Duplicates,
		"needs_review", sum.NeedsReview,
		"errors", sum.Errors,
		"dry_run", sum.DryRun,
	)
	return sum, nil
}

// listInputFiles scans the input directory (flat, non-recursive) for files
// with the configured extension, sorted by name.
func (p *Pipeline) listInputFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("listing input directory: %w", err)
	}
	ext := strings.ToLower(p.cfg.FileExtension)
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) != ext {
			continue
		}
		paths = append(paths, filepath.Join(p.cfg.InputDir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// orderByStartTime tentatively parses every file once, purely to extract a
// start timestamp, and sorts oldest first with unparseable files last
// (stable among themselves). Processing oldest-first keeps session gap
// clustering causally consistent. The authoritative parse happens again per
// file during processing; nothing from this pass is cached or logged.
func (p *Pipeline) orderByStartTime(paths []string) []string {
	type queued struct {
		path string
		ts   *time.Time
	}
	queue := make([]queued, len(paths))

	var g errgroup.Group
	workers := p.cfg.PreParseWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			queue[i].path = path
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			if parsed, _ := summary.Parse(p.cfg.Site, files.DecodeText(raw)); parsed != nil {
				ts := parsed.StartedAt
				queue[i].ts = &ts
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(queue, func(a, b int) bool {
		qa, qb := queue[a], queue[b]
		if qa.ts == nil {
			return false
		}
		if qb.ts == nil {
			return true
		}
		return qa.ts.Before(*qb.ts)
	})

	ordered := make([]string, len(queue))
	for i, q := range queue {
		ordered[i] = q.path
	}
	return ordered
}

// processFile runs the per-file state machine and returns the terminal
// status. Exactly one audit event is written on every path.
func (p *Pipeline) processFile(ctx context.Context, path string) audit.Status {
	started := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.FileProcessingDuration.Observe(time.Since(started).Seconds())
		}
	}()

	event := &audit.Event{FileName: filepath.Base(path)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return p.fatal(ctx, path, event, fmt.Errorf("reading file: %w", err))
	}

	hash := fingerprint.Sum(raw)
	event.FileHash = &hash

	known := p.seen.Contains(ctx, hash)
	if !known {
		known, err = p.store.HashExists(ctx, hash)
		if err != nil {
			return p.fatal(ctx, path, event, fmt.Errorf("checking stored hash: %w", err))
		}
	}
	if known {
		p.seen.Add(ctx, hash)
		if !p.cfg.DryRun {
			if _, err := files.SafeMove(path, p.folders.Duplicate); err != nil {
				return p.fatal(ctx, path, event, err)
			}
		}
		return p.finish(ctx, event, audit.StatusDuplicate, "hash_exists")
	}

	parsed, reason := summary.Parse(p.cfg.Site, files.DecodeText(raw))
	if parsed == nil {
		if !p.cfg.DryRun {
			if _, err := files.SafeMove(path, p.folders.NeedsReview); err != nil {
				return p.fatal(ctx, path, event, err)
			}
		}
		if reason == "" {
			reason = "unknown_parse_failure"
		}
		status := audit.StatusError
		if summary.NeedsReview(reason) {
			status = audit.StatusNeedsReview
		}
		return p.finish(ctx, event, status, reason)
	}

	startTime := parsed.StartedAt.Format("2006-01-02 15:04:05")
	event.TournamentID = &parsed.TournamentID
	event.StartTime = &startTime
	event.BuyIn = &parsed.BuyIn
	event.Payout = &parsed.Payout

	if p.cfg.DryRun {
		return p.finish(ctx, event, audit.StatusDryRun, "no_db_no_move")
	}

	var asg session.Assignment
	err = p.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		asg, err = session.Assign(ctx, tx, p.cfg.Site, parsed.StartedAt, p.cfg.SessionGap)
		if err != nil {
			return err
		}
		if err := tx.InsertResult(ctx, resultRow(parsed, event.FileName, hash, asg)); err != nil {
			return err
		}
		// Move to processed before commit so a failed move still rolls the
		// insert back. If the commit fails after the move, the file has
		// already left the input folder.
		if _, err := files.SafeMove(path, p.folders.Processed); err != nil {
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		p.seen.Add(ctx, hash)
		p.recordAssignment(asg)
		return p.finish(ctx, event, audit.StatusInserted, "ok")

	case errors.Is(err, store.ErrDuplicateHash):
		p.seen.Add(ctx, hash)
		if _, mvErr := files.SafeMove(path, p.folders.Duplicate); mvErr != nil {
			p.logger.Warn("failed to relocate duplicate", "file", event.FileName, "error", mvErr)
		}
		return p.finish(ctx, event, audit.StatusDuplicate, "unique_conflict")

	default:
		// The transaction is already rolled back. Relocation is best-effort:
		// its own failure must not mask the recorded error outcome.
		if _, mvErr := files.SafeMove(path, p.folders.NeedsReview); mvErr != nil {
			p.logger.Warn("failed to relocate after rollback", "file", event.FileName, "error", mvErr)
		}
		p.logger.Error("transaction failed", "file", event.FileName, "error", err)
		return p.finish(ctx, event, audit.StatusError, "move_failed_or_db_error:"+errName(err))
	}
}

// fatal handles any unexpected per-file failure: best-effort relocation to
// needs-review (skipped in dry-run), then a terminal error record.
func (p *Pipeline) fatal(ctx context.Context, path string, event *audit.Event, err error) audit.Status {
	if !p.cfg.DryRun {
		if _, mvErr := files.SafeMove(path, p.folders.NeedsReview); mvErr != nil {
			p.logger.Warn("failed to relocate after fatal failure", "file", event.FileName, "error", mvErr)
		}
	}
	p.logger.Error("file processing failed", "file", event.FileName, "error", err)
	return p.finish(ctx, event, audit.StatusError, "fatal:"+errName(err))
}

// finish stamps the event with its terminal status and appends it to the
// audit log. A log write failure is itself logged but never re-raised.
func (p *Pipeline) finish(ctx context.Context, event *audit.Event, status audit.Status, reason string) audit.Status {
	event.Status = status
	event.Reason = reason
	if err := p.audit.Write(ctx, event); err != nil {
		p.logger.Error("failed to write audit event", "file", event.FileName, "error", err)
	}
	if p.metrics != nil {
		p.metrics.FilesProcessedTotal.WithLabelValues(string(status)).Inc()
	}
	return status
}

func (p *Pipeline) recordAssignment(asg session.Assignment) {
	if p.metrics == nil {
		return
	}
	if asg.Created {
		p.metrics.SessionsStartedTotal.Inc()
	} else {
		p.metrics.SessionsJoinedTotal.Inc()
	}
	if asg.Shifted > 0 {
		p.metrics.SessionIndexShiftsTotal.Add(float64(asg.Shifted))
	}
}

// resultRow builds the persisted row from a parsed summary and its session
// assignment.
func resultRow(parsed *summary.Result, fileName, hash string, asg session.Assignment) *store.ResultRow {
	return &store.ResultRow{
		Site:           parsed.Site,
		TournamentID:   parsed.TournamentID,
		StartedAt:      parsed.StartedAt,
		HeroName:       parsed.HeroName,
		SourceFileName: fileName,
		SourceFileHash: hash,
		TournamentName: parsed.TournamentName,
		GameType:       parsed.GameType,
		PlayerCount:    parsed.PlayerCount,
		Currency:       parsed.Currency,
		BuyIn:          parsed.BuyIn,
		PrizePool:      parsed.PrizePool,
		Payout:         parsed.Payout,
		Profit:         parsed.Profit,
		FinishPlace:    parsed.FinishPlace,
		SessionID:      asg.SessionID,
		SessionStart:   asg.Start,
		SessionIndex:   asg.Index,
	}
}

// errName reports the root cause's type name, in the style of the reason
// codes written by earlier versions of this importer.
func errName(err error) string {
	for unwrapped := err; unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		err = unwrapped
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
