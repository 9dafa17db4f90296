// Package store persists tournament results in PostgreSQL. The table is
// append-mostly and keyed for uniqueness by source file hash; session
// membership queries and the ordinal renumbering update are exposed through
// a transaction-scoped capability (Tx) so that session assignment and the
// result insert always run in the same atomic unit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pokertrack/summary-importer/pkg/postgres"
)

// ErrDuplicateHash marks a uniqueness violation on source_file_hash, either
// at insert time or at commit.
var ErrDuplicateHash = errors.New("source file hash already stored")

// ResultRow is one persisted tournament result.
type ResultRow struct {
	Site           string
	TournamentID   int64
	StartedAt      time.Time
	HeroName       string
	SourceFileName string
	SourceFileHash string
	TournamentName string
	GameType       string
	PlayerCount    *int
	Currency       string
	BuyIn          float64
	PrizePool      *float64
	Payout         float64
	Profit         float64
	FinishPlace    *int
	SessionID      string
	SessionStart   time.Time
	SessionIndex   int
}

// SessionRef identifies an existing session found near a timestamp.
type SessionRef struct {
	ID    string
	Start time.Time
}

// Tx is the transaction-scoped store capability handed to the session
// assigner and the insert step. Every method runs against the same
// underlying transaction.
type Tx interface {
	InsertResult(ctx context.Context, row *ResultRow) error
	PrevSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*SessionRef, error)
	NextSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*SessionRef, error)
	CountMembersBefore(ctx context.Context, site, sessionID string, ts time.Time) (int, error)
	ShiftIndexesFrom(ctx context.Context, site, sessionID string, ts time.Time) (int64, error)
	MinSessionStart(ctx context.Context, site, sessionID string) (time.Time, error)
}

// Store wraps the PostgreSQL client with the importer's queries.
type Store struct {
	db *postgres.Client
}

// New creates a Store over an open client.
func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// HashExists reports whether a result with this content hash is already
// stored. Used as the fast duplicate pre-check outside any transaction.
func (s *Store) HashExists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.DB.QueryRowContext(ctx, sqlHashExists, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking hash existence: %w", err)
	}
	return true, nil
}

// InTx runs fn against a transaction-scoped Tx. Uniqueness violations on the
// content hash, whether raised by the insert or at commit, are mapped to
// ErrDuplicateHash.
func (s *Store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&sqlTx{tx: tx})
	})
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateHash
	}
	return err
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// sqlTx implements Tx over a live *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) InsertResult(ctx context.Context, row *ResultRow) error {
	_, err := t.tx.ExecContext(ctx, sqlInsertResult,
		row.Site, row.TournamentID, row.StartedAt, row.HeroName,
		row.SourceFileName, row.SourceFileHash,
		row.TournamentName, row.GameType, row.PlayerCount, row.Currency,
		row.BuyIn, row.PrizePool, row.Payout, row.Profit,
		row.FinishPlace,
		row.SessionID, row.SessionStart, row.SessionIndex,
	)
	if err != nil {
		return fmt.Errorf("inserting tournament result: %w", err)
	}
	return nil
}

func (t *sqlTx) PrevSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*SessionRef, error) {
	return t.sessionRef(ctx, sqlPrevWithinGap, site, ts, ts.Add(-gap))
}

func (t *sqlTx) NextSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*SessionRef, error) {
	return t.sessionRef(ctx, sqlNextWithinGap, site, ts, ts.Add(gap))
}

func (t *sqlTx) sessionRef(ctx context.Context, query, site string, ts, bound time.Time) (*SessionRef, error) {
	var ref SessionRef
	err := t.tx.QueryRowContext(ctx, query, site, ts, bound).Scan(&ref.ID, &ref.Start)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session within gap: %w", err)
	}
	return &ref, nil
}

func (t *sqlTx) CountMembersBefore(ctx context.Context, site, sessionID string, ts time.Time) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, sqlCountMembersBefore, site, sessionID, ts).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting session members: %w", err)
	}
	return count, nil
}

func (t *sqlTx) ShiftIndexesFrom(ctx context.Context, site, sessionID string, ts time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, sqlShiftIndexesFrom, site, sessionID, ts)
	if err != nil {
		return 0, fmt.Errorf("shifting session indexes: %w", err)
	}
	shifted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading shifted row count: %w", err)
	}
	return shifted, nil
}

func (t *sqlTx) MinSessionStart(ctx context.Context, site, sessionID string) (time.Time, error) {
	var min sql.NullTime
	err := t.tx.QueryRowContext(ctx, sqlMinSessionStart, site, sessionID).Scan(&min)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying session min start: %w", err)
	}
	if !min.Valid {
		return time.Time{}, nil
	}
	return min.Time, nil
}
