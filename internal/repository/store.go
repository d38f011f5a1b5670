package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/infra"
)

// Store binds the repositories to one pool. Rebuilds run in a single transaction each,
// together with the outbox events that describe them.
type Store struct {
	pool     *pgxpool.Pool
	matches  MatchRepository
	leagues  LeagueRepository
	users    UserRepository
	bets     BetRepository
	fairplay FairplayRepository
	scores   ScoreRepository
	tokens   TokenRepository
	outbox   OutboxRepository
}

// NewStore creates a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		matches:  NewMatchRepository(),
		leagues:  NewLeagueRepository(),
		users:    NewUserRepository(),
		bets:     NewBetRepository(),
		fairplay: NewFairplayRepository(),
		scores:   NewScoreRepository(),
		tokens:   NewTokenRepository(),
		outbox:   NewOutboxRepository(),
	}
}

// ── Matches & teams ──

func (s *Store) UpsertTeam(ctx context.Context, team domain.Team) error {
	return s.matches.UpsertTeam(ctx, s.pool, team)
}

func (s *Store) UpsertMatch(ctx context.Context, m domain.Match) (bool, error) {
	return s.matches.UpsertMatch(ctx, s.pool, m)
}

func (s *Store) UpdateOdds(ctx context.Context, fixtureID int64, odds domain.Odds) (bool, error) {
	return s.matches.UpdateOdds(ctx, s.pool, fixtureID, odds)
}

func (s *Store) FindMatch(ctx context.Context, fixtureID int64) (*domain.Match, error) {
	return s.matches.FindByID(ctx, s.pool, fixtureID)
}

func (s *Store) FindMatchView(ctx context.Context, fixtureID int64) (*domain.MatchView, error) {
	return s.matches.FindView(ctx, s.pool, fixtureID)
}

func (s *Store) MaxMatchday(ctx context.Context, competitionID, season int) (int, error) {
	return s.matches.MaxMatchday(ctx, s.pool, competitionID, season)
}

func (s *Store) SeasonMatches(ctx context.Context, competitionID, season int) ([]domain.Match, error) {
	return s.matches.ListBySeason(ctx, s.pool, competitionID, season)
}

func (s *Store) MatchesBetween(ctx context.Context, from, to time.Time, username string) ([]domain.MatchView, error) {
	return s.matches.ListKickoffBetween(ctx, s.pool, from, to, username)
}

// ── Leagues, users & bets ──

func (s *Store) Leagues(ctx context.Context) ([]domain.League, error) {
	return s.leagues.List(ctx, s.pool)
}

func (s *Store) LeagueExists(ctx context.Context, leagueID string) (bool, error) {
	return s.leagues.Exists(ctx, s.pool, leagueID)
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, s.pool)
}

func (s *Store) UpsertBet(ctx context.Context, bet domain.Bet) error {
	return s.bets.Upsert(ctx, s.pool, bet)
}

func (s *Store) SeasonBets(ctx context.Context, competitionID, season int) ([]domain.Bet, error) {
	return s.bets.ListBySeason(ctx, s.pool, competitionID, season)
}

func (s *Store) BetsForFixtures(ctx context.Context, fixtureIDs []int64) ([]domain.Bet, error) {
	return s.bets.ListForFixtures(ctx, s.pool, fixtureIDs)
}

// ── Derived tables ──

func (s *Store) FairplayByLeague(ctx context.Context, leagueID string) ([]int64, error) {
	return s.fairplay.ListByLeague(ctx, s.pool, leagueID)
}

// ReplaceFairplay swaps the whole fairplay table. On error nothing is changed.
func (s *Store) ReplaceFairplay(ctx context.Context, marks []domain.FairplayMark, events []domain.OutboxDraft) (int64, error) {
	var n int64
	err := infra.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if n, err = s.fairplay.Replace(ctx, tx, marks); err != nil {
			return err
		}
		return s.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return 0, fmt.Errorf("replace fairplay: %w", err)
	}
	return n, nil
}

// ReplaceScores swaps the whole scores table. On error nothing is changed.
func (s *Store) ReplaceScores(ctx context.Context, records []domain.ScoreRecord, events []domain.OutboxDraft) (int64, error) {
	var n int64
	err := infra.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if n, err = s.scores.Replace(ctx, tx, records); err != nil {
			return err
		}
		return s.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return 0, fmt.Errorf("replace scores: %w", err)
	}
	return n, nil
}

// ReplaceTokens discards every previous token and stores tokens.
func (s *Store) ReplaceTokens(ctx context.Context, tokens []domain.NotificationToken) (int64, error) {
	var n int64
	err := infra.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		n, err = s.tokens.Replace(ctx, tx, tokens)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("replace tokens: %w", err)
	}
	return n, nil
}

func (s *Store) FindToken(ctx context.Context, token string) (*domain.NotificationToken, error) {
	return s.tokens.Find(ctx, s.pool, token)
}

func (s *Store) Leaderboard(ctx context.Context, leagueID string) ([]domain.ScoreRecord, error) {
	return s.scores.Leaderboard(ctx, s.pool, leagueID)
}

// ── Outbox ──

func (s *Store) RecordEvent(ctx context.Context, draft domain.OutboxDraft) error {
	return s.outbox.Insert(ctx, s.pool, draft)
}

func (s *Store) PendingEvents(ctx context.Context) (int, error) {
	return s.outbox.CountPending(ctx, s.pool)
}

func (s *Store) insertEvents(ctx context.Context, tx pgx.Tx, events []domain.OutboxDraft) error {
	for _, e := range events {
		if err := s.outbox.Insert(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}
