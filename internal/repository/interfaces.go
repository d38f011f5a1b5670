package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/matchday/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// MatchRepository provides access to matches and teams.
type MatchRepository interface {
	// UpsertTeam inserts or updates a team by id.
	UpsertTeam(ctx context.Context, db DBTX, team domain.Team) error

	// UpsertMatch inserts or updates a match by fixture id. Odds are never written.
	// Returns false when the stored row already held identical values.
	UpsertMatch(ctx context.Context, db DBTX, m domain.Match) (bool, error)

	// UpdateOdds overwrites the stored odds of one match.
	UpdateOdds(ctx context.Context, db DBTX, fixtureID int64, odds domain.Odds) (bool, error)

	// FindByID returns a match by fixture id.
	FindByID(ctx context.Context, db DBTX, fixtureID int64) (*domain.Match, error)

	// FindView returns a match joined with its team names.
	FindView(ctx context.Context, db DBTX, fixtureID int64) (*domain.MatchView, error)

	// MaxMatchday returns the highest matchday stored for a competition season (0 if none).
	MaxMatchday(ctx context.Context, db DBTX, competitionID, season int) (int, error)

	// ListBySeason returns all matches of a competition season.
	ListBySeason(ctx context.Context, db DBTX, competitionID, season int) ([]domain.Match, error)

	// ListKickoffBetween returns matches with from <= kickoff < to, ordered by kickoff.
	// When username is set the user's bet is attached.
	ListKickoffBetween(ctx context.Context, db DBTX, from, to time.Time, username string) ([]domain.MatchView, error)
}

// LeagueRepository provides access to leagues and their members.
type LeagueRepository interface {
	// List returns every league with its member usernames.
	List(ctx context.Context, db DBTX) ([]domain.League, error)

	// Exists reports whether a league id is known.
	Exists(ctx context.Context, db DBTX, leagueID string) (bool, error)
}

// UserRepository provides access to users.
type UserRepository interface {
	List(ctx context.Context, db DBTX) ([]domain.User, error)
}

// BetRepository provides access to bets.
type BetRepository interface {
	// Upsert writes a bet; a concurrent write for the same (user, match) wins if it commits last.
	Upsert(ctx context.Context, db DBTX, bet domain.Bet) error

	// ListBySeason returns every bet placed on matches of a competition season.
	ListBySeason(ctx context.Context, db DBTX, competitionID, season int) ([]domain.Bet, error)

	// ListForFixtures returns the bets placed on the given matches.
	ListForFixtures(ctx context.Context, db DBTX, fixtureIDs []int64) ([]domain.Bet, error)
}

// FairplayRepository provides access to fairplay marks.
type FairplayRepository interface {
	// Replace deletes every mark and inserts marks. Must run inside a transaction.
	Replace(ctx context.Context, tx DBTX, marks []domain.FairplayMark) (int64, error)

	// ListByLeague returns the eligible fixture ids of a league.
	ListByLeague(ctx context.Context, db DBTX, leagueID string) ([]int64, error)
}

// ScoreRepository provides access to leaderboard rows.
type ScoreRepository interface {
	// Replace deletes every score row and inserts records. Must run inside a transaction.
	Replace(ctx context.Context, tx DBTX, records []domain.ScoreRecord) (int64, error)

	// Leaderboard returns a league's rows by score desc, correct_bets desc.
	Leaderboard(ctx context.Context, db DBTX, leagueID string) ([]domain.ScoreRecord, error)
}

// TokenRepository provides access to notification tokens.
type TokenRepository interface {
	// Replace deletes every token and inserts tokens. Must run inside a transaction.
	Replace(ctx context.Context, tx DBTX, tokens []domain.NotificationToken) (int64, error)

	// Find returns the binding of a token.
	Find(ctx context.Context, db DBTX, token string) (*domain.NotificationToken, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the rebuild it describes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// CountPending returns the number of events not yet relayed.
	CountPending(ctx context.Context, db DBTX) (int, error)
}
