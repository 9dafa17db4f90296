// Package session clusters tournament results into sessions. A session is
// not a stored entity: it is a generated id shared by all results whose
// start timestamps sit within the configured gap of each other,
// transitively, with a 1-based contiguous ordinal per member.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pokertrack/summary-importer/internal/store"
)

// Assignment is the outcome of placing one result into a session.
type Assignment struct {
	SessionID string
	Start     time.Time
	Index     int
	// Created is true when a brand-new single-member session was minted.
	Created bool
	// Shifted is the number of sibling rows renumbered to make room.
	Shifted int64
}

// Assign finds or creates the session for an event at ts and computes its
// ordinal index, renumbering later siblings inside the same transaction.
//
// A qualifying predecessor (nearest member at or before ts within gap) wins
// over a qualifying successor, even when the successor is closer. Sessions
// are never merged: only the single nearest qualifying session is joined.
func Assign(ctx context.Context, tx store.Tx, site string, ts time.Time, gap time.Duration) (Assignment, error) {
	ref, err := findWithinGap(ctx, tx, site, ts, gap)
	if err != nil {
		return Assignment{}, err
	}
	if ref == nil {
		return Assignment{
			SessionID: uuid.NewString(),
			Start:     ts,
			Index:     1,
			Created:   true,
		}, nil
	}

	// Members sharing the exact timestamp are renumbered upward, so the
	// new event takes the lower ordinal.
	before, err := tx.CountMembersBefore(ctx, site, ref.ID, ts)
	if err != nil {
		return Assignment{}, fmt.Errorf("counting members before %s: %w", ts, err)
	}

	shifted, err := tx.ShiftIndexesFrom(ctx, site, ref.ID, ts)
	if err != nil {
		return Assignment{}, fmt.Errorf("renumbering session %s: %w", ref.ID, err)
	}

	start, err := sessionStart(ctx, tx, site, ref, ts)
	if err != nil {
		return Assignment{}, err
	}

	return Assignment{
		SessionID: ref.ID,
		Start:     start,
		Index:     before + 1,
		Shifted:   shifted,
	}, nil
}

// findWithinGap looks for the nearest session member at or before ts within
// gap, then at or after it. Gap bounds are inclusive, so a zero gap still
// matches exact timestamps.
func findWithinGap(ctx context.Context, tx store.Tx, site string, ts time.Time, gap time.Duration) (*store.SessionRef, error) {
	prev, err := tx.PrevSessionWithinGap(ctx, site, ts, gap)
	if err != nil {
		return nil, fmt.Errorf("searching preceding session: %w", err)
	}
	if prev != nil {
		return prev, nil
	}

	next, err := tx.NextSessionWithinGap(ctx, site, ts, gap)
	if err != nil {
		return nil, fmt.Errorf("searching following session: %w", err)
	}
	return next, nil
}

// sessionStart recomputes the session start as the minimum start across all
// members including the event being inserted.
func sessionStart(ctx context.Context, tx store.Tx, site string, ref *store.SessionRef, ts time.Time) (time.Time, error) {
	min, err := tx.MinSessionStart(ctx, site, ref.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("recomputing start of session %s: %w", ref.ID, err)
	}
	if min.IsZero() {
		min = ref.Start
	}
	if ts.Before(min) {
		min = ts
	}
	return min, nil
}
