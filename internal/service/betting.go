package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/matchday/platform/internal/domain"
)

// UpcomingWindow is how far ahead GetUpcomingMatches looks.
const UpcomingWindow = 8 * 24 * time.Hour

// BettingStore is the data access needed by BettingService.
type BettingStore interface {
	FindMatchView(ctx context.Context, fixtureID int64) (*domain.MatchView, error)
	UpsertBet(ctx context.Context, bet domain.Bet) error
	FindToken(ctx context.Context, token string) (*domain.NotificationToken, error)
	LeagueExists(ctx context.Context, leagueID string) (bool, error)
	Leaderboard(ctx context.Context, leagueID string) ([]domain.ScoreRecord, error)
	MatchesBetween(ctx context.Context, from, to time.Time, username string) ([]domain.MatchView, error)
}

// BettingService handles bet submission, token redemption and the read side used by the API.
type BettingService struct {
	store  BettingStore
	now    func() time.Time
	logger *slog.Logger
}

// NewBettingService creates a BettingService.
func NewBettingService(store BettingStore, logger *slog.Logger) *BettingService {
	return &BettingService{store: store, now: time.Now, logger: logger}
}

// SubmitBetInput holds a bet submission.
type SubmitBetInput struct {
	FixtureID  int64  `json:"id_fixture"`
	Prediction string `json:"prediction"`
}

// SubmitBet stores the user's prediction for a match. Bets close at kickoff.
func (s *BettingService) SubmitBet(ctx context.Context, username string, input SubmitBetInput) (*domain.Bet, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateFixtureID(input.FixtureID); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	outcome, err := domain.ParseOutcome(input.Prediction)
	if err != nil {
		return nil, err
	}

	match, err := s.store.FindMatchView(ctx, input.FixtureID)
	if err != nil {
		return nil, err
	}
	return s.placeBet(ctx, username, &match.Match, outcome)
}

// RedeemToken places the bet bound to a notification token. The token stays usable
// until kickoff or until the next day's tokens replace it.
func (s *BettingService) RedeemToken(ctx context.Context, token string) (*domain.Confirmation, error) {
	if err := domain.ValidateToken(token); err != nil {
		return nil, domain.ErrTokenNotFound()
	}
	binding, err := s.store.FindToken(ctx, token)
	if err != nil {
		return nil, err
	}
	match, err := s.store.FindMatchView(ctx, binding.FixtureID)
	if err != nil {
		return nil, err
	}
	if _, err := s.placeBet(ctx, binding.Username, &match.Match, binding.Outcome); err != nil {
		return nil, err
	}

	s.logger.Info("bet placed from token", "username", binding.Username, "fixture_id", binding.FixtureID, "prediction", binding.Outcome)
	return &domain.Confirmation{
		Username:  binding.Username,
		FixtureID: binding.FixtureID,
		HomeTeam:  match.HomeTeam,
		AwayTeam:  match.AwayTeam,
		Outcome:   binding.Outcome,
	}, nil
}

// placeBet is the single write path for bets; both submission and redemption go through it.
func (s *BettingService) placeBet(ctx context.Context, username string, match *domain.Match, outcome domain.Outcome) (*domain.Bet, error) {
	now := s.now()
	if match.Started(now) {
		return nil, domain.ErrKickoffPassed(match.FixtureID)
	}
	bet := domain.Bet{
		Username:   username,
		FixtureID:  match.FixtureID,
		Prediction: outcome,
		UpdatedAt:  now.UTC(),
	}
	if err := s.store.UpsertBet(ctx, bet); err != nil {
		if domain.HasCode(err, domain.CodeKickoffPassed) {
			return nil, err
		}
		return nil, domain.ErrInternal("store bet", err)
	}
	return &bet, nil
}

// GetLeaderboard returns a league's rows by score, then correct bets, then username.
func (s *BettingService) GetLeaderboard(ctx context.Context, leagueID string) ([]domain.ScoreRecord, error) {
	if leagueID == "" {
		return nil, domain.ErrValidation("league is required")
	}
	ok, err := s.store.LeagueExists(ctx, leagueID)
	if err != nil {
		return nil, domain.ErrInternal("league lookup", err)
	}
	if !ok {
		return nil, domain.ErrNotFound("league", leagueID)
	}
	rows, err := s.store.Leaderboard(ctx, leagueID)
	if err != nil {
		return nil, domain.ErrInternal("leaderboard", err)
	}
	if rows == nil {
		rows = []domain.ScoreRecord{}
	}
	return rows, nil
}

// GetUpcomingMatches lists matches kicking off within the next eight days with the
// user's current bet attached.
func (s *BettingService) GetUpcomingMatches(ctx context.Context, username string) ([]domain.MatchView, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	now := s.now()
	matches, err := s.store.MatchesBetween(ctx, now, now.Add(UpcomingWindow), username)
	if err != nil {
		return nil, domain.ErrInternal("upcoming matches", err)
	}
	if matches == nil {
		matches = []domain.MatchView{}
	}
	return matches, nil
}
