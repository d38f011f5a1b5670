package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/matchday/platform/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	leagues  []domain.League
	matches  []domain.Match
	bets     []domain.Bet
	fairplay []domain.FairplayMark
	scores   []domain.ScoreRecord
	events   []domain.OutboxDraft

	replaceErr error
}

func (s *fakeStore) Leagues(context.Context) ([]domain.League, error) {
	return s.leagues, nil
}

func (s *fakeStore) SeasonMatches(_ context.Context, comp, season int) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range s.matches {
		if m.CompetitionID == comp && m.Season == season {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) SeasonBets(context.Context, int, int) ([]domain.Bet, error) {
	return s.bets, nil
}

func (s *fakeStore) FairplayByLeague(_ context.Context, leagueID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, m := range s.fairplay {
		if m.LeagueID == leagueID {
			ids = append(ids, m.FixtureID)
		}
	}
	return ids, nil
}

func (s *fakeStore) ReplaceFairplay(_ context.Context, marks []domain.FairplayMark, events []domain.OutboxDraft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return 0, s.replaceErr
	}
	s.fairplay = marks
	s.events = append(s.events, events...)
	return int64(len(marks)), nil
}

func (s *fakeStore) ReplaceScores(_ context.Context, records []domain.ScoreRecord, events []domain.OutboxDraft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return 0, s.replaceErr
	}
	s.scores = records
	s.events = append(s.events, events...)
	return int64(len(records)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func odds(home, draw, away string) *domain.Odds {
	return &domain.Odds{Home: dec(home), Draw: dec(draw), Away: dec(away)}
}

func finished(id int64, md int, result domain.Result, o *domain.Odds) domain.Match {
	return domain.Match{
		FixtureID: id, CompetitionID: 135, Season: 2025, Matchday: md,
		Status: domain.StatusFinished, Result: result, Odds: o,
	}
}

func bet(user string, id int64, o domain.Outcome) domain.Bet {
	return domain.Bet{Username: user, FixtureID: id, Prediction: o}
}

func league(id string, members ...string) domain.League {
	return domain.League{ID: id, CompetitionID: 135, Season: 2025, Members: members}
}

func findRecord(t *testing.T, records []domain.ScoreRecord, user string) domain.ScoreRecord {
	t.Helper()
	for _, r := range records {
		if r.Username == user {
			return r
		}
	}
	t.Fatalf("no score row for %s", user)
	return domain.ScoreRecord{}
}

// --- Fairplay ---

func TestFairplayMarks(t *testing.T) {
	matches := []domain.Match{finished(1, 1, domain.ResultHome, nil), finished(2, 1, domain.ResultDraw, nil)}

	t.Run("all members bet", func(t *testing.T) {
		bets := []domain.Bet{
			bet("anna", 1, domain.OutcomeHome), bet("bruno", 1, domain.OutcomeAway),
			bet("anna", 2, domain.OutcomeHome),
		}
		marks := FairplayMarks(league("L", "anna", "bruno"), matches, bets)
		assert.Equal(t, []domain.FairplayMark{{FixtureID: 1, LeagueID: "L"}}, marks)
	})

	t.Run("non-member bet does not complete eligibility", func(t *testing.T) {
		bets := []domain.Bet{bet("anna", 1, domain.OutcomeHome), bet("carla", 1, domain.OutcomeHome)}
		assert.Empty(t, FairplayMarks(league("L", "anna", "bruno"), matches, bets))
	})

	t.Run("league without members marks nothing", func(t *testing.T) {
		bets := []domain.Bet{bet("anna", 1, domain.OutcomeHome)}
		assert.Empty(t, FairplayMarks(league("L"), matches, bets))
	})

	t.Run("duplicate member entries count once", func(t *testing.T) {
		bets := []domain.Bet{bet("anna", 1, domain.OutcomeHome), bet("anna", 1, domain.OutcomeDraw)}
		assert.Len(t, FairplayMarks(league("L", "anna", "anna"), matches, bets), 1)
	})
}

func TestRebuildFairplay_PerLeague(t *testing.T) {
	store := &fakeStore{
		leagues: []domain.League{league("A", "anna", "bruno"), league("B", "anna"), league("C")},
		matches: []domain.Match{finished(1, 1, domain.ResultHome, nil), finished(2, 2, domain.ResultAway, nil)},
		bets: []domain.Bet{
			bet("anna", 1, domain.OutcomeHome), bet("bruno", 1, domain.OutcomeHome),
			bet("anna", 2, domain.OutcomeAway),
		},
	}
	agg := NewAggregator(store, 2, testLogger())

	n, err := agg.RebuildFairplay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []domain.FairplayMark{
		{FixtureID: 1, LeagueID: "A"},
		{FixtureID: 1, LeagueID: "B"},
		{FixtureID: 2, LeagueID: "B"},
	}, store.fairplay)
	require.Len(t, store.events, 3)
	assert.Equal(t, domain.EventFairplayRebuilt, store.events[0].EventType)
}

func TestRebuildFairplay_FailureKeepsPreviousMarks(t *testing.T) {
	previous := []domain.FairplayMark{{FixtureID: 9, LeagueID: "A"}}
	store := &fakeStore{
		leagues:    []domain.League{league("A", "anna")},
		matches:    []domain.Match{finished(1, 1, domain.ResultHome, nil)},
		bets:       []domain.Bet{bet("anna", 1, domain.OutcomeHome)},
		fairplay:   previous,
		replaceErr: errors.New("duplicate key value violates unique constraint"),
	}
	agg := NewAggregator(store, 1, testLogger())

	_, err := agg.RebuildFairplay(context.Background())
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeAggregationFailure))
	assert.Equal(t, previous, store.fairplay)
	assert.Empty(t, store.events)
}

// --- Scores ---

func TestComputeScores_SingleMatch(t *testing.T) {
	// One eligible finished match, home win at 2.0, matchday in the first tier.
	matches := []domain.Match{finished(1, 1, domain.ResultHome, odds("2.0", "3.0", "4.0"))}
	for md := 2; md <= 30; md++ {
		matches = append(matches, domain.Match{FixtureID: int64(100 + md), Matchday: md, Status: domain.StatusScheduled})
	}
	bets := []domain.Bet{bet("anna", 1, domain.OutcomeHome), bet("bruno", 1, domain.OutcomeAway)}

	ls := ComputeScores(league("L", "anna", "bruno"), matches, bets, []int64{1}, 30)

	assert.True(t, ls.Volume.Equal(dec("1")))
	anna := findRecord(t, ls.Records, "anna")
	assert.True(t, anna.Score.Equal(dec("2")), anna.Score.String())
	assert.Equal(t, 1, anna.CorrectBets)
	assert.True(t, anna.FinalBalance.Equal(dec("1")), anna.FinalBalance.String())

	bruno := findRecord(t, ls.Records, "bruno")
	assert.True(t, bruno.Score.IsZero())
	assert.Zero(t, bruno.CorrectBets)
	assert.True(t, bruno.FinalBalance.Equal(dec("-1")))
}

func TestComputeScores_SecretCutoff(t *testing.T) {
	// maxMatchday 10, fraction 0.9: cutoff 9, so matchday 9 and 10 are hidden.
	matches := []domain.Match{
		finished(1, 8, domain.ResultHome, odds("2", "3", "4")),
		finished(2, 9, domain.ResultHome, odds("5", "3", "4")),
		finished(3, 10, domain.ResultHome, odds("7", "3", "4")),
	}
	bets := []domain.Bet{bet("anna", 1, domain.OutcomeHome), bet("anna", 2, domain.OutcomeHome), bet("anna", 3, domain.OutcomeHome)}

	ls := ComputeScores(league("L", "anna"), matches, bets, []int64{1, 2, 3}, 10)

	assert.True(t, ls.Cutoff.Equal(dec("9")))
	anna := findRecord(t, ls.Records, "anna")
	assert.Equal(t, 1, anna.CorrectBets)
	assert.True(t, anna.Score.Equal(dec("2")))
	// Matchday 8 of 10 is in the late tier.
	assert.True(t, ls.Volume.Equal(dec("2")), ls.Volume.String())
}

func TestComputeScores_LeagueCutoffOverride(t *testing.T) {
	matches := []domain.Match{
		finished(1, 4, domain.ResultDraw, odds("2", "3", "4")),
		finished(2, 6, domain.ResultDraw, odds("2", "3", "4")),
	}
	bets := []domain.Bet{bet("anna", 1, domain.OutcomeDraw), bet("anna", 2, domain.OutcomeDraw)}
	l := league("L", "anna")
	l.SecretCutoff = dec("0.5")

	ls := ComputeScores(l, matches, bets, []int64{1, 2}, 10)
	anna := findRecord(t, ls.Records, "anna")
	assert.Equal(t, 1, anna.CorrectBets)
	assert.True(t, anna.Score.Equal(dec("3")))
	assert.True(t, ls.Volume.Equal(dec("1.5")))
}

func TestComputeScores_OnlyEligibleFinishedMatchesCount(t *testing.T) {
	notMarked := finished(1, 1, domain.ResultHome, odds("2", "3", "4"))
	unfinished := finished(2, 1, domain.ResultUnknown, odds("2", "3", "4"))
	unfinished.Status = domain.StatusScheduled
	counted := finished(3, 1, domain.ResultAway, odds("2", "3", "4.5"))

	bets := []domain.Bet{
		bet("anna", 1, domain.OutcomeHome),
		bet("anna", 2, domain.OutcomeHome),
		bet("anna", 3, domain.OutcomeAway),
		bet("carla", 3, domain.OutcomeAway),
	}
	ls := ComputeScores(league("L", "anna", "bruno"), []domain.Match{notMarked, unfinished, counted}, bets, []int64{2, 3}, 30)

	require.Len(t, ls.Records, 2, "non-member carla gets no row")
	anna := findRecord(t, ls.Records, "anna")
	assert.Equal(t, 1, anna.CorrectBets)
	assert.True(t, anna.Score.Equal(dec("4.5")))
	assert.True(t, ls.Volume.Equal(dec("1")))

	bruno := findRecord(t, ls.Records, "bruno")
	assert.Zero(t, bruno.CorrectBets)
}

func TestComputeScores_NoMembers(t *testing.T) {
	ls := ComputeScores(league("L"), []domain.Match{finished(1, 1, domain.ResultHome, nil)}, nil, []int64{1}, 10)
	assert.Empty(t, ls.Records)
}

func TestRebuildScores(t *testing.T) {
	store := &fakeStore{
		leagues: []domain.League{league("A", "anna", "bruno"), league("B", "anna")},
		matches: []domain.Match{
			finished(1, 1, domain.ResultHome, odds("2.0", "3.2", "3.9")),
			{FixtureID: 2, CompetitionID: 135, Season: 2025, Matchday: 30, Status: domain.StatusScheduled},
		},
		bets: []domain.Bet{bet("anna", 1, domain.OutcomeHome), bet("bruno", 1, domain.OutcomeDraw)},
		fairplay: []domain.FairplayMark{
			{FixtureID: 1, LeagueID: "A"},
		},
	}
	agg := NewAggregator(store, 4, testLogger())

	report, err := agg.RebuildScores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ScoreReport{Leagues: 2, Rows: 3}, report)

	var inB []domain.ScoreRecord
	for _, r := range store.scores {
		switch {
		case r.LeagueID == "B":
			inB = append(inB, r)
		case r.Username == "anna":
			assert.True(t, r.Score.Equal(dec("2")))
			assert.True(t, r.FinalBalance.Equal(dec("1")))
		}
	}
	require.Len(t, inB, 1)
	assert.True(t, inB[0].Score.IsZero(), "match is not fairplay in B")

	require.Len(t, store.events, 2)
	for _, e := range store.events {
		assert.Equal(t, domain.EventLeaderboardRebuilt, e.EventType)
	}
}

func TestRebuildScores_FailureKeepsPreviousSnapshot(t *testing.T) {
	previous := []domain.ScoreRecord{{Username: "anna", LeagueID: "A", Score: dec("7"), CorrectBets: 3, FinalBalance: dec("2")}}
	store := &fakeStore{
		leagues:    []domain.League{league("A", "anna")},
		scores:     previous,
		replaceErr: errors.New("connection reset"),
	}
	agg := NewAggregator(store, 1, testLogger())

	report, err := agg.RebuildScores(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, domain.HasCode(err, domain.CodeAggregationFailure))
	assert.Equal(t, previous, store.scores)
}
