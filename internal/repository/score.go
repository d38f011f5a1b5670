package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/infra"
)

type scoreRepo struct{}

// NewScoreRepository returns a pgx-backed ScoreRepository.
func NewScoreRepository() ScoreRepository {
	return &scoreRepo{}
}

var scoreColumns = []string{"username", "league_id", "score", "correct_bets", "final_balance"}

func (r *scoreRepo) Replace(ctx context.Context, tx DBTX, records []domain.ScoreRecord) (int64, error) {
	rows := make([][]interface{}, len(records))
	for i, s := range records {
		rows[i] = []interface{}{
			s.Username,
			s.LeagueID,
			infra.DecimalToNumeric(s.Score.Round(3)),
			s.CorrectBets,
			infra.DecimalToNumeric(s.FinalBalance.Round(3)),
		}
	}
	return replaceAll(ctx, tx, "scores", scoreColumns, rows)
}

func (r *scoreRepo) Leaderboard(ctx context.Context, db DBTX, leagueID string) ([]domain.ScoreRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT username, league_id, score, correct_bets, final_balance
		FROM scores
		WHERE league_id = $1
		ORDER BY score DESC, correct_bets DESC, username ASC`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", leagueID, err)
	}
	defer rows.Close()

	var out []domain.ScoreRecord
	for rows.Next() {
		var s domain.ScoreRecord
		var score, balance pgtype.Numeric
		if err := rows.Scan(&s.Username, &s.LeagueID, &score, &s.CorrectBets, &balance); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if s.Score, err = infra.NumericToDecimal(score); err != nil {
			return nil, fmt.Errorf("score %s: %w", s.Username, err)
		}
		if s.FinalBalance, err = infra.NumericToDecimal(balance); err != nil {
			return nil, fmt.Errorf("final_balance %s: %w", s.Username, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
