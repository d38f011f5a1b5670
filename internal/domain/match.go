package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is a predicted (or actual) three-way match outcome.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Outcomes lists the three outcomes in display order.
var Outcomes = [3]Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}

// ParseOutcome normalises a prediction. The legacy 1/x/2 codes are accepted.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "1":
		return OutcomeHome, nil
	case "draw", "x":
		return OutcomeDraw, nil
	case "away", "2":
		return OutcomeAway, nil
	}
	return "", ErrValidation(fmt.Sprintf("invalid prediction %q: must be home, draw or away", s))
}

// Short returns the 1/X/2 label used in messages.
func (o Outcome) Short() string {
	switch o {
	case OutcomeHome:
		return "1"
	case OutcomeDraw:
		return "X"
	case OutcomeAway:
		return "2"
	}
	return "?"
}

// Result is the settled outcome of a match.
type Result string

const (
	ResultHome    Result = "home"
	ResultDraw    Result = "draw"
	ResultAway    Result = "away"
	ResultUnknown Result = "unknown"
)

// ResultFromGoals derives the result from full-time goals. A missing side yields unknown.
func ResultFromGoals(home, away *int) Result {
	if home == nil || away == nil {
		return ResultUnknown
	}
	switch {
	case *home > *away:
		return ResultHome
	case *home == *away:
		return ResultDraw
	default:
		return ResultAway
	}
}

// Matches reports whether a prediction is correct for this result.
func (r Result) Matches(o Outcome) bool {
	return r != ResultUnknown && string(r) == string(o)
}

// MatchStatus is the coarse lifecycle state of a fixture.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusFinished  MatchStatus = "finished"
	StatusOther     MatchStatus = "other"
)

// StatusFromShort maps a provider short status code.
func StatusFromShort(short string) MatchStatus {
	switch strings.ToUpper(short) {
	case "NS", "TBD":
		return StatusScheduled
	case "FT", "AET", "PEN":
		return StatusFinished
	default:
		return StatusOther
	}
}

// Odds is the stored home/draw/away odds triple.
type Odds struct {
	Home decimal.Decimal `json:"home"`
	Draw decimal.Decimal `json:"draw"`
	Away decimal.Decimal `json:"away"`
}

// For returns the odds value of one outcome.
func (o Odds) For(outcome Outcome) decimal.Decimal {
	switch outcome {
	case OutcomeHome:
		return o.Home
	case OutcomeDraw:
		return o.Draw
	case OutcomeAway:
		return o.Away
	}
	return decimal.Zero
}

// Scale multiplies every value by m.
func (o Odds) Scale(m decimal.Decimal) Odds {
	return Odds{Home: o.Home.Mul(m), Draw: o.Draw.Mul(m), Away: o.Away.Mul(m)}
}

// Valid reports whether all three values are positive.
func (o Odds) Valid() bool {
	return o.Home.IsPositive() && o.Draw.IsPositive() && o.Away.IsPositive()
}

// Team is a club referenced by fixtures.
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Match is one fixture. Odds are nil until the tiering adjuster has written them.
type Match struct {
	FixtureID     int64       `json:"id_fixture"`
	CompetitionID int         `json:"competition_id"`
	Season        int         `json:"season"`
	Matchday      int         `json:"matchday"`
	HomeTeamID    int64       `json:"home_team"`
	AwayTeamID    int64       `json:"away_team"`
	Kickoff       time.Time   `json:"kickoff"`
	Status        MatchStatus `json:"status"`
	StatusShort   string      `json:"status_short"`
	Result        Result      `json:"result"`
	Odds          *Odds       `json:"odds,omitempty"`
}

// Started reports whether betting on the match is closed at now.
func (m *Match) Started(now time.Time) bool {
	return !now.Before(m.Kickoff)
}

// MatchView is a match joined with team names for messages and the upcoming list.
type MatchView struct {
	Match
	HomeTeam string   `json:"home_team_name"`
	AwayTeam string   `json:"away_team_name"`
	UserBet  *Outcome `json:"user_bet,omitempty"`
}
