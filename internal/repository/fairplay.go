package repository

import (
	"context"
	"fmt"

	"github.com/matchday/platform/internal/domain"
)

type fairplayRepo struct{}

// NewFairplayRepository returns a pgx-backed FairplayRepository.
func NewFairplayRepository() FairplayRepository {
	return &fairplayRepo{}
}

var fairplayColumns = []string{"id_fixture", "league_id"}

func (r *fairplayRepo) Replace(ctx context.Context, tx DBTX, marks []domain.FairplayMark) (int64, error) {
	rows := make([][]interface{}, len(marks))
	for i, m := range marks {
		rows[i] = []interface{}{m.FixtureID, m.LeagueID}
	}
	return replaceAll(ctx, tx, "fairplay", fairplayColumns, rows)
}

func (r *fairplayRepo) ListByLeague(ctx context.Context, db DBTX, leagueID string) ([]int64, error) {
	rows, err := db.Query(ctx, `SELECT id_fixture FROM fairplay WHERE league_id = $1 ORDER BY id_fixture`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list fairplay %s: %w", leagueID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fairplay: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
