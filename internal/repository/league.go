package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/infra"
)

type leagueRepo struct{}

// NewLeagueRepository returns a pgx-backed LeagueRepository.
func NewLeagueRepository() LeagueRepository {
	return &leagueRepo{}
}

func (r *leagueRepo) List(ctx context.Context, db DBTX) ([]domain.League, error) {
	rows, err := db.Query(ctx, `
		SELECT l.id, l.name, l.competition_id, l.season, l.secret_cutoff,
		       COALESCE(array_agg(lm.username ORDER BY lm.username) FILTER (WHERE lm.username IS NOT NULL), '{}')
		FROM leagues l
		LEFT JOIN league_members lm ON lm.league_id = l.id
		GROUP BY l.id
		ORDER BY l.id`)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	defer rows.Close()

	var out []domain.League
	for rows.Next() {
		var l domain.League
		var cutoff pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.Name, &l.CompetitionID, &l.Season, &cutoff, &l.Members); err != nil {
			return nil, fmt.Errorf("scan league: %w", err)
		}
		if l.SecretCutoff, err = infra.NumericToDecimal(cutoff); err != nil {
			return nil, fmt.Errorf("league %s secret_cutoff: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *leagueRepo) Exists(ctx context.Context, db DBTX, leagueID string) (bool, error) {
	var ok bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leagues WHERE id = $1)`, leagueID).Scan(&ok); err != nil {
		return false, fmt.Errorf("league exists %s: %w", leagueID, err)
	}
	return ok, nil
}
