package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/matchday/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type betKey struct {
	user    string
	fixture int64
}

type fakeStore struct {
	matches  map[int64]domain.MatchView
	tokens   map[string]domain.NotificationToken
	bets     map[betKey]domain.Bet
	leagues  map[string][]domain.ScoreRecord
	from, to time.Time
	user     string
	upserts  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: map[int64]domain.MatchView{},
		tokens:  map[string]domain.NotificationToken{},
		bets:    map[betKey]domain.Bet{},
		leagues: map[string][]domain.ScoreRecord{},
	}
}

func (s *fakeStore) FindMatchView(_ context.Context, id int64) (*domain.MatchView, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, domain.ErrNotFound("match", strconv.FormatInt(id, 10))
	}
	return &m, nil
}

func (s *fakeStore) UpsertBet(_ context.Context, bet domain.Bet) error {
	s.upserts++
	s.bets[betKey{bet.Username, bet.FixtureID}] = bet
	return nil
}

func (s *fakeStore) FindToken(_ context.Context, token string) (*domain.NotificationToken, error) {
	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrTokenNotFound()
	}
	return &t, nil
}

func (s *fakeStore) LeagueExists(_ context.Context, id string) (bool, error) {
	_, ok := s.leagues[id]
	return ok, nil
}

func (s *fakeStore) Leaderboard(_ context.Context, id string) ([]domain.ScoreRecord, error) {
	return s.leagues[id], nil
}

func (s *fakeStore) MatchesBetween(_ context.Context, from, to time.Time, user string) ([]domain.MatchView, error) {
	s.from, s.to, s.user = from, to, user
	return nil, nil
}

var (
	now     = time.Date(2025, 9, 14, 17, 0, 0, 0, time.UTC)
	kickoff = now.Add(time.Hour)
)

const validToken = "Zm9vYmFyYmF6cXV4cXV1eGNvcmdl"

func setup() (*BettingService, *fakeStore) {
	store := newFakeStore()
	store.matches[1001] = domain.MatchView{
		Match:    domain.Match{FixtureID: 1001, Kickoff: kickoff, Status: domain.StatusScheduled},
		HomeTeam: "Genoa",
		AwayTeam: "Lecce",
	}
	store.tokens[validToken] = domain.NotificationToken{Token: validToken, Username: "anna", FixtureID: 1001, Outcome: domain.OutcomeAway}

	svc := NewBettingService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestSubmitBet(t *testing.T) {
	svc, store := setup()

	bet, err := svc.SubmitBet(context.Background(), "anna", SubmitBetInput{FixtureID: 1001, Prediction: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDraw, bet.Prediction)

	_, err = svc.SubmitBet(context.Background(), "anna", SubmitBetInput{FixtureID: 1001, Prediction: "home"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeHome, store.bets[betKey{"anna", 1001}].Prediction, "last write wins")
}

func TestSubmitBet_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		input SubmitBetInput
		code  string
	}{
		{"bad prediction", "anna", SubmitBetInput{FixtureID: 1001, Prediction: "over"}, domain.CodeValidation},
		{"bad fixture id", "anna", SubmitBetInput{FixtureID: 0, Prediction: "home"}, domain.CodeValidation},
		{"bad username", "a b", SubmitBetInput{FixtureID: 1001, Prediction: "home"}, domain.CodeValidation},
		{"unknown match", "anna", SubmitBetInput{FixtureID: 42, Prediction: "home"}, domain.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setup()
			_, err := svc.SubmitBet(context.Background(), tt.user, tt.input)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tt.code), err.Error())
			assert.Zero(t, store.upserts)
		})
	}
}

func TestSubmitBet_AtKickoff(t *testing.T) {
	svc, store := setup()
	svc.now = func() time.Time { return kickoff }

	_, err := svc.SubmitBet(context.Background(), "anna", SubmitBetInput{FixtureID: 1001, Prediction: "home"})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeKickoffPassed))
	assert.Empty(t, store.bets)
}

func TestRedeemToken(t *testing.T) {
	svc, store := setup()

	conf, err := svc.RedeemToken(context.Background(), validToken)
	require.NoError(t, err)
	assert.Equal(t, &domain.Confirmation{
		Username: "anna", FixtureID: 1001, HomeTeam: "Genoa", AwayTeam: "Lecce", Outcome: domain.OutcomeAway,
	}, conf)
	assert.Equal(t, domain.OutcomeAway, store.bets[betKey{"anna", 1001}].Prediction)

	// Redeeming again before kickoff is accepted.
	_, err = svc.RedeemToken(context.Background(), validToken)
	require.NoError(t, err)
	assert.Equal(t, 2, store.upserts)
}

func TestRedeemToken_AfterKickoffLeavesBetUnchanged(t *testing.T) {
	svc, store := setup()
	store.bets[betKey{"anna", 1001}] = domain.Bet{Username: "anna", FixtureID: 1001, Prediction: domain.OutcomeHome}
	svc.now = func() time.Time { return kickoff.Add(time.Minute) }

	_, err := svc.RedeemToken(context.Background(), validToken)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeKickoffPassed))
	assert.Equal(t, domain.OutcomeHome, store.bets[betKey{"anna", 1001}].Prediction)
	assert.Zero(t, store.upserts)
}

func TestRedeemToken_Unknown(t *testing.T) {
	svc, _ := setup()
	for _, tok := range []string{"short", "UnknownTokenValue12345", "../../etc/passwd-xxxxxxxx"} {
		_, err := svc.RedeemToken(context.Background(), tok)
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, domain.CodeNotFound), tok)
	}
}

func TestGetLeaderboard(t *testing.T) {
	svc, store := setup()
	store.leagues["friends"] = nil

	rows, err := svc.GetLeaderboard(context.Background(), "friends")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = svc.GetLeaderboard(context.Background(), "nope")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestGetUpcomingMatches_Window(t *testing.T) {
	svc, store := setup()

	matches, err := svc.GetUpcomingMatches(context.Background(), "anna")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Equal(t, now, store.from)
	assert.Equal(t, now.AddDate(0, 0, 8), store.to)
	assert.Equal(t, "anna", store.user)
}

func TestPlaceBet_StoreFailure(t *testing.T) {
	svc, _ := setup()
	svc.store = failingStore{svc.store}

	_, err := svc.SubmitBet(context.Background(), "anna", SubmitBetInput{FixtureID: 1001, Prediction: "2"})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
}

type failingStore struct{ BettingStore }

func TestPlaceBet_KickoffReachedDuringWrite(t *testing.T) {
	svc, store := setup()
	svc.store = closingStore{store}

	_, err := svc.SubmitBet(context.Background(), "anna", SubmitBetInput{FixtureID: 1001, Prediction: "home"})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeKickoffPassed), err.Error())
	assert.Empty(t, store.bets)
}

// closingStore refuses the write the way the database does once kickoff has passed.
type closingStore struct{ BettingStore }

func (closingStore) UpsertBet(_ context.Context, bet domain.Bet) error {
	return domain.ErrKickoffPassed(bet.FixtureID)
}

func (failingStore) UpsertBet(context.Context, domain.Bet) error {
	return errors.New("connection refused")
}
