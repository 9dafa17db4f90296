package summary

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// startTimeLayout matches the "Tournament started" line of GG summary files.
const startTimeLayout = "2006/01/02 15:04:05"

// heroName is the display name the site uses for the account holder in
// placement lines.
const heroName = "Hero"

var (
	reTournamentLine = regexp.MustCompile(`(?im)^[ \t]*Tournament[ \t]*#(\d+)[ \t]*,[ \t]*(.+?)[ \t]*,[ \t]*(.+?)[ \t]*\r?$`)
	reBuyIn          = regexp.MustCompile(`(?im)^[ \t]*Buy-in:[ \t]*(.+?)[ \t]*\r?$`)
	rePlayers        = regexp.MustCompile(`(?im)^[ \t]*(\d+)[ \t]+Players[ \t]*\r?$`)
	rePrizePool      = regexp.MustCompile(`(?im)^[ \t]*Total[ \t]+Prize[ \t]+Pool:[ \t]*(.+?)[ \t]*\r?$`)
	reStarted        = regexp.MustCompile(`(?im)^[ \t]*Tournament[ \t]+started[ \t]+(\d{4}/\d{2}/\d{2}[ \t]+\d{2}:\d{2}:\d{2})[ \t]*\r?$`)
	reFinish         = regexp.MustCompile(`(?im)^[ \t]*You[ \t]+finished[ \t]+in[ \t]+(\d+)[ \t]+place\.[ \t]*\r?$`)
	rePlacement      = regexp.MustCompile(`(?im)^[ \t]*(\d+)(?:st|nd|rd|th)[ \t]*:[ \t]*(.+?)[ \t]*,[ \t]*(.+?)[ \t]*\r?$`)
	reCashAmount     = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseMoneyUSD parses a cash token like "$3", "$3.00" or "$1,200.50".
// Non-cash tokens (tickets, bounties, anything without a leading "$")
// return false.
func ParseMoneyUSD(token string) (float64, bool) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "$") {
		return 0, false
	}
	number := strings.TrimSpace(strings.ReplaceAll(token[1:], ",", ""))
	if !reCashAmount.MatchString(number) {
		return 0, false
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Parse extracts a structured Result from raw summary text. On failure it
// returns a nil Result and a reason code from the fixed vocabulary.
func Parse(site, text string) (*Result, string) {
	m := reTournamentLine.FindStringSubmatch(text)
	if m == nil {
		return nil, ReasonMissingHeader
	}
	tournamentID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, ReasonMissingHeader
	}
	tournamentName := strings.TrimSpace(m[2])
	gameType := strings.TrimSpace(m[3])

	mBuy := reBuyIn.FindStringSubmatch(text)
	if mBuy == nil {
		return nil, ReasonMissingBuyIn
	}
	buyIn, ok := ParseMoneyUSD(mBuy[1])
	if !ok {
		return nil, ReasonNonCashBuyIn
	}

	var playerCount *int
	if mp := rePlayers.FindStringSubmatch(text); mp != nil {
		if n, err := strconv.Atoi(mp[1]); err == nil {
			playerCount = &n
		}
	}

	var prizePool *float64
	if mPool := rePrizePool.FindStringSubmatch(text); mPool != nil {
		if v, ok := ParseMoneyUSD(mPool[1]); ok {
			pool := round2(v)
			prizePool = &pool
		}
	}

	mStart := reStarted.FindStringSubmatch(text)
	if mStart == nil {
		return nil, ReasonMissingStartTime
	}
	startedAt, err := time.Parse(startTimeLayout, normalizeSpaces(mStart[1]))
	if err != nil {
		return nil, ReasonMissingStartTime
	}

	var finishPlace *int
	if mf := reFinish.FindStringSubmatch(text); mf != nil {
		if place, err := strconv.Atoi(mf[1]); err == nil {
			finishPlace = &place
		}
	}

	payout, reason := heroPayout(text)
	if reason != "" {
		return nil, reason
	}

	return &Result{
		Site:           site,
		TournamentID:   tournamentID,
		StartedAt:      startedAt,
		HeroName:       heroName,
		TournamentName: tournamentName,
		GameType:       gameType,
		PlayerCount:    playerCount,
		Currency:       "USD",
		BuyIn:          round2(buyIn),
		PrizePool:      prizePool,
		Payout:         round2(payout),
		Profit:         round2(payout - buyIn),
		FinishPlace:    finishPlace,
	}, ""
}

// heroPayout scans placement lines for the hero's payout token. A placement
// line for the hero with a non-cash token is ambiguous; no placement line at
// all is a structural defect.
func heroPayout(text string) (float64, string) {
	for _, pm := range rePlacement.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(pm[2])
		if !strings.EqualFold(name, heroName) {
			continue
		}
		payout, ok := ParseMoneyUSD(pm[3])
		if !ok {
			return 0, ReasonNonCashPayout
		}
		return payout, ""
	}
	return 0, ReasonMissingHeroPayout
}

// normalizeSpaces collapses tab runs so the start-time layout always sees a
// single space between date and time.
func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
