package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/matchday/platform/internal/domain"
)

type betRepo struct{}

// NewBetRepository returns a pgx-backed BetRepository.
func NewBetRepository() BetRepository {
	return &betRepo{}
}

// Upsert writes the bet only while the match has not kicked off by the database clock, so a
// submission checked just before kickoff cannot commit after it.
func (r *betRepo) Upsert(ctx context.Context, db DBTX, bet domain.Bet) error {
	tag, err := db.Exec(ctx, `
		INSERT INTO bets (username, id_fixture, prediction, updated_at)
		SELECT $1, m.id_fixture, $3, now()
		FROM matches m
		WHERE m.id_fixture = $2 AND m.kickoff > now()
		ON CONFLICT (username, id_fixture) DO UPDATE
		SET prediction = EXCLUDED.prediction, updated_at = EXCLUDED.updated_at`,
		bet.Username, bet.FixtureID, string(bet.Prediction))
	if err != nil {
		return fmt.Errorf("upsert bet %s/%d: %w", bet.Username, bet.FixtureID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKickoffPassed(bet.FixtureID)
	}
	return nil
}

func (r *betRepo) ListBySeason(ctx context.Context, db DBTX, competitionID, season int) ([]domain.Bet, error) {
	rows, err := db.Query(ctx, `
		SELECT b.username, b.id_fixture, b.prediction, b.updated_at
		FROM bets b
		JOIN matches m ON m.id_fixture = b.id_fixture
		WHERE m.competition_id = $1 AND m.season = $2`, competitionID, season)
	if err != nil {
		return nil, fmt.Errorf("list bets %d/%d: %w", competitionID, season, err)
	}
	return collectBets(rows)
}

func (r *betRepo) ListForFixtures(ctx context.Context, db DBTX, fixtureIDs []int64) ([]domain.Bet, error) {
	if len(fixtureIDs) == 0 {
		return nil, nil
	}
	rows, err := db.Query(ctx, `
		SELECT username, id_fixture, prediction, updated_at
		FROM bets WHERE id_fixture = ANY($1)`, fixtureIDs)
	if err != nil {
		return nil, fmt.Errorf("list bets for fixtures: %w", err)
	}
	return collectBets(rows)
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var prediction string
		if err := rows.Scan(&b.Username, &b.FixtureID, &prediction, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.Prediction = domain.Outcome(prediction)
		out = append(out, b)
	}
	return out, rows.Err()
}
