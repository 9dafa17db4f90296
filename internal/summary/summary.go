// Package summary parses plain-text tournament result summaries into
// structured records. Parsing either yields a complete Result or a reason
// code from a fixed vocabulary; reasons prefixed "needs_review:" mark
// business-rule-ambiguous content while "parse_error:" marks a missing
// required section.
package summary

import (
	"math"
	"strings"
	"time"
)

// Reason codes returned alongside a nil Result.
const (
	ReasonMissingHeader     = "parse_error:missing_tournament_header"
	ReasonMissingBuyIn      = "parse_error:missing_buy_in"
	ReasonMissingStartTime  = "parse_error:missing_start_time"
	ReasonMissingHeroPayout = "parse_error:missing_hero_payout_line"
	ReasonNonCashBuyIn      = "needs_review:non_cash_buy_in"
	ReasonNonCashPayout     = "needs_review:non_cash_payout"
)

// NeedsReview reports whether a parse failure reason marks ambiguous (rather
// than structurally broken) content.
func NeedsReview(reason string) bool {
	return strings.HasPrefix(reason, "needs_review:")
}

// Result is a fully parsed tournament summary. Amounts are USD rounded to
// two decimals; Profit is always Payout minus BuyIn.
type Result struct {
	Site           string
	TournamentID   int64
	StartedAt      time.Time
	HeroName       string
	TournamentName string
	GameType       string
	PlayerCount    *int
	Currency       string
	BuyIn          float64
	PrizePool      *float64
	Payout         float64
	Profit         float64
	FinishPlace    *int
}

// round2 rounds to two decimal places, matching how amounts are stored.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
