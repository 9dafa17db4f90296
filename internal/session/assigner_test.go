package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pokertrack/summary-importer/internal/store"
)

// fakeTx implements store.Tx over an in-memory member list.
type fakeTx struct {
	rows []*fakeRow
}

type fakeRow struct {
	site      string
	ts        time.Time
	sessionID string
	start     time.Time
	index     int
	notes     string
}

func (f *fakeTx) InsertResult(ctx context.Context, row *store.ResultRow) error {
	f.rows = append(f.rows, &fakeRow{
		site:      row.Site,
		ts:        row.StartedAt,
		sessionID: row.SessionID,
		start:     row.SessionStart,
		index:     row.SessionIndex,
	})
	return nil
}

func (f *fakeTx) PrevSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*store.SessionRef, error) {
	var best *fakeRow
	for _, r := range f.rows {
		if r.site != site || r.ts.After(ts) || r.ts.Before(ts.Add(-gap)) {
			continue
		}
		if best == nil || r.ts.After(best.ts) {
			best = r
		}
	}
	return ref(best), nil
}

func (f *fakeTx) NextSessionWithinGap(ctx context.Context, site string, ts time.Time, gap time.Duration) (*store.SessionRef, error) {
	var best *fakeRow
	for _, r := range f.rows {
		if r.site != site || r.ts.Before(ts) || r.ts.After(ts.Add(gap)) {
			continue
		}
		if best == nil || r.ts.Before(best.ts) {
			best = r
		}
	}
	return ref(best), nil
}

func ref(r *fakeRow) *store.SessionRef {
	if r == nil {
		return nil
	}
	return &store.SessionRef{ID: r.sessionID, Start: r.start}
}

func (f *fakeTx) CountMembersBefore(ctx context.Context, site, sessionID string, ts time.Time) (int, error) {
	count := 0
	for _, r := range f.rows {
		if r.site == site && r.sessionID == sessionID && r.ts.Before(ts) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTx) ShiftIndexesFrom(ctx context.Context, site, sessionID string, ts time.Time) (int64, error) {
	var shifted int64
	for _, r := range f.rows {
		if r.site != site || r.sessionID != sessionID || r.ts.Before(ts) {
			continue
		}
		r.index++
		if r.notes == "" {
			r.notes = "index_shifted"
		} else {
			r.notes += " | index_shifted"
		}
		shifted++
	}
	return shifted, nil
}

func (f *fakeTx) MinSessionStart(ctx context.Context, site, sessionID string) (time.Time, error) {
	var min time.Time
	for _, r := range f.rows {
		if r.site != site || r.sessionID != sessionID {
			continue
		}
		if min.IsZero() || r.ts.Before(min) {
			min = r.ts
		}
	}
	return min, nil
}

func (f *fakeTx) member(site, sessionID string, ts, start time.Time, index int) {
	f.rows = append(f.rows, &fakeRow{site: site, ts: ts, sessionID: sessionID, start: start, index: index})
}

var baseTS = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

const gap = 60 * time.Minute

func TestAssignEmptyStoreMintsNewSession(t *testing.T) {
	tx := &fakeTx{}
	asg, err := Assign(context.Background(), tx, "GG", baseTS, gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !asg.Created {
		t.Errorf("Created = false, want true")
	}
	if asg.SessionID == "" {
		t.Errorf("SessionID is empty")
	}
	if asg.Index != 1 {
		t.Errorf("Index = %d, want 1", asg.Index)
	}
	if !asg.Start.Equal(baseTS) {
		t.Errorf("Start = %v, want %v", asg.Start, baseTS)
	}
	if asg.Shifted != 0 {
		t.Errorf("Shifted = %d, want 0", asg.Shifted)
	}
}

func TestAssignJoinsSessionWithinGap(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS, baseTS, 1)

	asg, err := Assign(context.Background(), tx, "GG", baseTS.Add(10*time.Minute), gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.Created {
		t.Errorf("Created = true, want false")
	}
	if asg.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", asg.SessionID)
	}
	if asg.Index != 2 {
		t.Errorf("Index = %d, want 2", asg.Index)
	}
	if !asg.Start.Equal(baseTS) {
		t.Errorf("Start = %v, want %v", asg.Start, baseTS)
	}
	if asg.Shifted != 0 {
		t.Errorf("Shifted = %d, want 0", asg.Shifted)
	}
}

func TestAssignBeyondGapMintsNewSession(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS, baseTS, 1)

	asg, err := Assign(context.Background(), tx, "GG", baseTS.Add(2*time.Hour), gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !asg.Created {
		t.Errorf("Created = false, want true")
	}
	if asg.SessionID == "s1" {
		t.Errorf("joined s1, want a new session")
	}
	if asg.Index != 1 {
		t.Errorf("Index = %d, want 1", asg.Index)
	}
}

func TestAssignPredecessorWinsOverCloserSuccessor(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "before", baseTS.Add(-50*time.Minute), baseTS.Add(-50*time.Minute), 1)
	tx.member("GG", "after", baseTS.Add(5*time.Minute), baseTS.Add(5*time.Minute), 1)

	asg, err := Assign(context.Background(), tx, "GG", baseTS, gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.SessionID != "before" {
		t.Errorf("SessionID = %q, want the qualifying predecessor", asg.SessionID)
	}
}

func TestAssignSuccessorUsedWhenNoPredecessor(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "after", baseTS.Add(30*time.Minute), baseTS.Add(30*time.Minute), 1)

	asg, err := Assign(context.Background(), tx, "GG", baseTS, gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.SessionID != "after" {
		t.Errorf("SessionID = %q, want after", asg.SessionID)
	}
	if asg.Index != 1 {
		t.Errorf("Index = %d, want 1", asg.Index)
	}
	if asg.Shifted != 1 {
		t.Errorf("Shifted = %d, want 1", asg.Shifted)
	}
	// The successor keeps the session but the new event is now its earliest
	// member, so the session start moves back.
	if !asg.Start.Equal(baseTS) {
		t.Errorf("Start = %v, want %v", asg.Start, baseTS)
	}
}

func TestAssignMiddleInsertionRenumbersSiblings(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS, baseTS, 1)
	tx.member("GG", "s1", baseTS.Add(10*time.Minute), baseTS, 2)

	asg, err := Assign(context.Background(), tx, "GG", baseTS.Add(5*time.Minute), gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.SessionID != "s1" {
		t.Fatalf("SessionID = %q, want s1", asg.SessionID)
	}
	if asg.Index != 2 {
		t.Errorf("Index = %d, want 2", asg.Index)
	}
	if asg.Shifted != 1 {
		t.Errorf("Shifted = %d, want 1", asg.Shifted)
	}

	// The T+10m sibling was renumbered 2 -> 3 and annotated; indices are
	// again contiguous 1..3 once the new member lands at 2.
	for _, r := range tx.rows {
		if r.ts.Equal(baseTS.Add(10 * time.Minute)) {
			if r.index != 3 {
				t.Errorf("sibling index = %d, want 3", r.index)
			}
			if !strings.Contains(r.notes, "index_shifted") {
				t.Errorf("sibling notes = %q, want index_shifted annotation", r.notes)
			}
		}
		if r.ts.Equal(baseTS) && r.index != 1 {
			t.Errorf("earliest member index = %d, want 1", r.index)
		}
	}
}

func TestAssignNoteAppendedNotOverwritten(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS, baseTS, 1)
	tx.member("GG", "s1", baseTS.Add(10*time.Minute), baseTS, 2)
	tx.rows[1].notes = "manual note"

	if _, err := Assign(context.Background(), tx, "GG", baseTS.Add(5*time.Minute), gap); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got := tx.rows[1].notes; got != "manual note | index_shifted" {
		t.Errorf("notes = %q, want prior note preserved with separator", got)
	}
}

func TestAssignZeroGapMatchesExactTimestampOnly(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS, baseTS, 1)

	// One second away, zero gap: new session.
	asg, err := Assign(context.Background(), tx, "GG", baseTS.Add(time.Second), 0)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !asg.Created {
		t.Errorf("Created = false, want a new session at zero gap")
	}

	// Exact match still qualifies.
	asg, err = Assign(context.Background(), tx, "GG", baseTS, 0)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1 for exact-timestamp match", asg.SessionID)
	}
}

func TestAssignEarlierThanAllMembersMovesSessionStart(t *testing.T) {
	tx := &fakeTx{}
	tx.member("GG", "s1", baseTS.Add(10*time.Minute), baseTS.Add(10*time.Minute), 1)
	tx.member("GG", "s1", baseTS.Add(20*time.Minute), baseTS.Add(10*time.Minute), 2)

	asg, err := Assign(context.Background(), tx, "GG", baseTS, gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if asg.SessionID != "s1" {
		t.Fatalf("SessionID = %q, want s1", asg.SessionID)
	}
	if asg.Index != 1 {
		t.Errorf("Index = %d, want 1", asg.Index)
	}
	if asg.Shifted != 2 {
		t.Errorf("Shifted = %d, want 2", asg.Shifted)
	}
	if !asg.Start.Equal(baseTS) {
		t.Errorf("Start = %v, want new minimum %v", asg.Start, baseTS)
	}
}

func TestAssignIgnoresOtherSites(t *testing.T) {
	tx := &fakeTx{}
	tx.member("Stars", "s1", baseTS, baseTS, 1)

	asg, err := Assign(context.Background(), tx, "GG", baseTS.Add(5*time.Minute), gap)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !asg.Created {
		t.Errorf("joined another site's session")
	}
}
