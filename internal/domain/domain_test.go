package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

// --- Result Tests ---

func TestResultFromGoals(t *testing.T) {
	tests := []struct {
		name string
		home *int
		away *int
		want Result
	}{
		{"home win", intp(2), intp(1), ResultHome},
		{"draw", intp(1), intp(1), ResultDraw},
		{"goalless draw", intp(0), intp(0), ResultDraw},
		{"away win", intp(0), intp(3), ResultAway},
		{"home missing", nil, intp(2), ResultUnknown},
		{"away missing", intp(1), nil, ResultUnknown},
		{"both missing", nil, nil, ResultUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultFromGoals(tt.home, tt.away))
		})
	}
}

func TestResultMatches(t *testing.T) {
	assert.True(t, ResultHome.Matches(OutcomeHome))
	assert.False(t, ResultHome.Matches(OutcomeAway))
	assert.True(t, ResultDraw.Matches(OutcomeDraw))
	assert.False(t, ResultUnknown.Matches(OutcomeHome))
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in      string
		want    Outcome
		wantErr bool
	}{
		{"home", OutcomeHome, false},
		{"DRAW", OutcomeDraw, false},
		{" away ", OutcomeAway, false},
		{"1", OutcomeHome, false},
		{"x", OutcomeDraw, false},
		{"X", OutcomeDraw, false},
		{"2", OutcomeAway, false},
		{"", "", true},
		{"3", "", true},
		{"win", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseOutcome(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, HasCode(err, CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusFromShort(t *testing.T) {
	assert.Equal(t, StatusScheduled, StatusFromShort("NS"))
	assert.Equal(t, StatusScheduled, StatusFromShort("TBD"))
	assert.Equal(t, StatusFinished, StatusFromShort("FT"))
	assert.Equal(t, StatusFinished, StatusFromShort("aet"))
	assert.Equal(t, StatusFinished, StatusFromShort("PEN"))
	assert.Equal(t, StatusOther, StatusFromShort("1H"))
	assert.Equal(t, StatusOther, StatusFromShort("PST"))
	assert.Equal(t, StatusOther, StatusFromShort(""))
}

// --- Tier Tests ---

func TestTierMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		matchday int
		max      int
		want     string
	}{
		{"first matchday", 1, 36, "1"},
		{"exactly at first boundary", 12, 36, "1"},
		{"one above first boundary", 13, 36, "1.5"},
		{"exactly at second boundary", 24, 36, "1.5"},
		{"one above second boundary", 25, 36, "2"},
		{"last matchday", 36, 36, "2"},
		{"fractional boundary below", 12, 38, "1"},
		{"fractional boundary above", 13, 38, "1.5"},
		{"fractional second boundary", 25, 38, "1.5"},
		{"past fractional second boundary", 26, 38, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierMultiplier(tt.matchday, tt.max)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestSecretCutoff(t *testing.T) {
	cutoff := SecretCutoff(38, DefaultSecretCutoff)
	assert.True(t, cutoff.Equal(decimal.RequireFromString("34.2")))
	assert.True(t, BeforeCutoff(34, cutoff))
	assert.False(t, BeforeCutoff(35, cutoff))

	exact := SecretCutoff(10, decimal.RequireFromString("0.5"))
	assert.True(t, BeforeCutoff(4, exact))
	assert.False(t, BeforeCutoff(5, exact), "matchday equal to the cutoff is hidden")
}

func TestLeagueCutoffFraction(t *testing.T) {
	l := &League{}
	assert.True(t, l.CutoffFraction().Equal(DefaultSecretCutoff))

	l.SecretCutoff = decimal.RequireFromString("0.75")
	assert.True(t, l.CutoffFraction().Equal(decimal.RequireFromString("0.75")))
}

// --- Odds Tests ---

func TestOddsScale(t *testing.T) {
	raw := Odds{
		Home: decimal.RequireFromString("2.10"),
		Draw: decimal.RequireFromString("3.40"),
		Away: decimal.RequireFromString("3.25"),
	}
	scaled := raw.Scale(decimal.RequireFromString("1.5"))

	assert.True(t, scaled.Home.Equal(decimal.RequireFromString("3.15")))
	assert.True(t, scaled.Draw.Equal(decimal.RequireFromString("5.1")))
	assert.True(t, scaled.Away.Equal(decimal.RequireFromString("4.875")))
	assert.True(t, scaled.For(OutcomeAway).Equal(scaled.Away))
	assert.True(t, raw.Valid())
	assert.False(t, Odds{Home: decimal.NewFromInt(1)}.Valid())
}

// --- Match / User Tests ---

func TestMatchStarted(t *testing.T) {
	kickoff := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	m := &Match{Kickoff: kickoff}

	assert.False(t, m.Started(kickoff.Add(-time.Second)))
	assert.True(t, m.Started(kickoff), "kickoff instant counts as started")
	assert.True(t, m.Started(kickoff.Add(time.Minute)))
}

func TestUserChannels(t *testing.T) {
	tests := []struct {
		name string
		user User
		want []Channel
	}{
		{"none configured", User{Username: "a"}, nil},
		{"email enabled without address", User{NotifyEmail: true}, nil},
		{"email only", User{Email: "a@b.io", NotifyEmail: true}, []Channel{ChannelEmail}},
		{"chat only", User{TelegramChatID: "42", NotifyChat: true}, []Channel{ChannelChat}},
		{"chat configured but disabled", User{TelegramChatID: "42"}, nil},
		{"both", User{Email: "a@b.io", NotifyEmail: true, TelegramChatID: "42", NotifyChat: true}, []Channel{ChannelEmail, ChannelChat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Channels())
		})
	}
}

// --- Error Tests ---

func TestAppError(t *testing.T) {
	t.Run("kickoff passed is a 403", func(t *testing.T) {
		err := ErrKickoffPassed(1035)
		assert.Equal(t, 403, err.Status)
		assert.Equal(t, CodeKickoffPassed, err.Code)
		assert.Contains(t, err.Error(), "1035")
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := fmt.Errorf("rebuild: %w", ErrAggregationFailure("scores", cause))
		assert.True(t, errors.Is(err, cause))
		assert.True(t, HasCode(err, CodeAggregationFailure))
		assert.False(t, HasCode(err, CodeDispatch))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("x"), CodeNotFound))
	})
}

// --- Validator Tests ---

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("mario_r"))
	require.Error(t, ValidateUsername(""))
	require.Error(t, ValidateUsername("a"))
	require.Error(t, ValidateUsername("has space"))
}

func TestValidateToken(t *testing.T) {
	require.NoError(t, ValidateToken("q8bB3f0ZrLkS1_-xYzA2c4D5e6F7g8H9"))
	require.Error(t, ValidateToken("short"))
	require.Error(t, ValidateToken("has/slash/aaaaaaaaaaaaaaaaaaaaaa"))
}

// --- Event Tests ---

func TestNewLeaderboardRebuiltEvent(t *testing.T) {
	evt := NewLeaderboardRebuiltEvent("friends", 4, "3.5")
	assert.Equal(t, AggregateLeague, evt.AggregateType)
	assert.Equal(t, EventLeaderboardRebuilt, evt.EventType)
	assert.Equal(t, "matchday.league.settlement.leaderboard.rebuilt", evt.Topic())

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "friends", payload["league_id"])
	assert.Equal(t, float64(4), payload["rows"])
}

func TestNewRunCompletedEvent(t *testing.T) {
	runID := uuid.New()
	evt := NewRunCompletedEvent(runID, map[string]bool{"degraded": true})
	assert.Equal(t, runID.String(), evt.AggregateID)
	assert.JSONEq(t, `{"degraded":true}`, string(evt.Payload))
}
