package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/infra"
)

type matchRepo struct{}

// NewMatchRepository returns a pgx-backed MatchRepository.
func NewMatchRepository() MatchRepository {
	return &matchRepo{}
}

const matchColumns = `m.id_fixture, m.competition_id, m.season, m.matchday, m.home_team, m.away_team,
	m.kickoff, m.status, m.status_short, m.result, m.odds_home, m.odds_draw, m.odds_away`

func (r *matchRepo) UpsertTeam(ctx context.Context, db DBTX, team domain.Team) error {
	_, err := db.Exec(ctx, `
		INSERT INTO teams (id, name, logo) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, logo = EXCLUDED.logo
		WHERE (teams.name, teams.logo) IS DISTINCT FROM (EXCLUDED.name, EXCLUDED.logo)`,
		team.ID, team.Name, team.Logo)
	if err != nil {
		return fmt.Errorf("upsert team %d: %w", team.ID, err)
	}
	return nil
}

// UpsertMatch only rewrites the row when a column differs, so identical provider
// output leaves the row (and updated_at) untouched.
func (r *matchRepo) UpsertMatch(ctx context.Context, db DBTX, m domain.Match) (bool, error) {
	tag, err := db.Exec(ctx, `
		INSERT INTO matches
		  (id_fixture, competition_id, season, matchday, home_team, away_team, kickoff, status, status_short, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id_fixture) DO UPDATE SET
		  competition_id = EXCLUDED.competition_id,
		  season         = EXCLUDED.season,
		  matchday       = EXCLUDED.matchday,
		  home_team      = EXCLUDED.home_team,
		  away_team      = EXCLUDED.away_team,
		  kickoff        = EXCLUDED.kickoff,
		  status         = EXCLUDED.status,
		  status_short   = EXCLUDED.status_short,
		  result         = EXCLUDED.result,
		  updated_at     = now()
		WHERE (matches.competition_id, matches.season, matches.matchday, matches.home_team, matches.away_team,
		       matches.kickoff, matches.status, matches.status_short, matches.result)
		  IS DISTINCT FROM
		      (EXCLUDED.competition_id, EXCLUDED.season, EXCLUDED.matchday, EXCLUDED.home_team, EXCLUDED.away_team,
		       EXCLUDED.kickoff, EXCLUDED.status, EXCLUDED.status_short, EXCLUDED.result)`,
		m.FixtureID, m.CompetitionID, m.Season, m.Matchday, m.HomeTeamID, m.AwayTeamID,
		m.Kickoff.UTC(), string(m.Status), m.StatusShort, string(m.Result),
	)
	if err != nil {
		return false, fmt.Errorf("upsert match %d: %w", m.FixtureID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *matchRepo) UpdateOdds(ctx context.Context, db DBTX, fixtureID int64, odds domain.Odds) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE matches SET odds_home = $2, odds_draw = $3, odds_away = $4, updated_at = now()
		WHERE id_fixture = $1`,
		fixtureID,
		infra.DecimalToNumeric(odds.Home),
		infra.DecimalToNumeric(odds.Draw),
		infra.DecimalToNumeric(odds.Away),
	)
	if err != nil {
		return false, fmt.Errorf("update odds %d: %w", fixtureID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *matchRepo) FindByID(ctx context.Context, db DBTX, fixtureID int64) (*domain.Match, error) {
	row := db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id_fixture = $1`, fixtureID)
	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("match", strconv.FormatInt(fixtureID, 10))
	}
	return m, err
}

func (r *matchRepo) FindView(ctx context.Context, db DBTX, fixtureID int64) (*domain.MatchView, error) {
	row := db.QueryRow(ctx, `
		SELECT `+matchColumns+`, ht.name, aw.name, NULL::text
		FROM matches m
		JOIN teams ht ON ht.id = m.home_team
		JOIN teams aw ON aw.id = m.away_team
		WHERE m.id_fixture = $1`, fixtureID)
	v, err := scanMatchView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("match", strconv.FormatInt(fixtureID, 10))
	}
	return v, err
}

func (r *matchRepo) MaxMatchday(ctx context.Context, db DBTX, competitionID, season int) (int, error) {
	var maxMD int
	err := db.QueryRow(ctx, `
		SELECT COALESCE(MAX(matchday), 0) FROM matches
		WHERE competition_id = $1 AND season = $2`, competitionID, season).Scan(&maxMD)
	if err != nil {
		return 0, fmt.Errorf("max matchday %d/%d: %w", competitionID, season, err)
	}
	return maxMD, nil
}

func (r *matchRepo) ListBySeason(ctx context.Context, db DBTX, competitionID, season int) ([]domain.Match, error) {
	rows, err := db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches m
		WHERE m.competition_id = $1 AND m.season = $2
		ORDER BY m.matchday, m.kickoff, m.id_fixture`, competitionID, season)
	if err != nil {
		return nil, fmt.Errorf("list matches %d/%d: %w", competitionID, season, err)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *matchRepo) ListKickoffBetween(ctx context.Context, db DBTX, from, to time.Time, username string) ([]domain.MatchView, error) {
	rows, err := db.Query(ctx, `
		SELECT `+matchColumns+`, ht.name, aw.name, b.prediction
		FROM matches m
		JOIN teams ht ON ht.id = m.home_team
		JOIN teams aw ON aw.id = m.away_team
		LEFT JOIN bets b ON b.id_fixture = m.id_fixture AND b.username = $3
		WHERE m.kickoff >= $1 AND m.kickoff < $2
		ORDER BY m.kickoff, m.id_fixture`, from.UTC(), to.UTC(), username)
	if err != nil {
		return nil, fmt.Errorf("list matches by kickoff: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchView
	for rows.Next() {
		v, err := scanMatchView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func matchScanTargets(m *domain.Match, status, result *string, home, draw, away *pgtype.Numeric) []interface{} {
	return []interface{}{
		&m.FixtureID, &m.CompetitionID, &m.Season, &m.Matchday, &m.HomeTeamID, &m.AwayTeamID,
		&m.Kickoff, status, &m.StatusShort, result, home, draw, away,
	}
}

func finishMatch(m *domain.Match, status, result string, home, draw, away pgtype.Numeric) error {
	m.Status = domain.MatchStatus(status)
	m.Result = domain.Result(result)
	if !home.Valid || !draw.Valid || !away.Valid {
		return nil
	}
	var odds domain.Odds
	var err error
	if odds.Home, err = infra.NumericToDecimal(home); err != nil {
		return fmt.Errorf("odds_home: %w", err)
	}
	if odds.Draw, err = infra.NumericToDecimal(draw); err != nil {
		return fmt.Errorf("odds_draw: %w", err)
	}
	if odds.Away, err = infra.NumericToDecimal(away); err != nil {
		return fmt.Errorf("odds_away: %w", err)
	}
	m.Odds = &odds
	return nil
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	var status, result string
	var home, draw, away pgtype.Numeric
	if err := row.Scan(matchScanTargets(&m, &status, &result, &home, &draw, &away)...); err != nil {
		return nil, err
	}
	if err := finishMatch(&m, status, result, home, draw, away); err != nil {
		return nil, fmt.Errorf("scan match %d: %w", m.FixtureID, err)
	}
	return &m, nil
}

func scanMatchView(row pgx.Row) (*domain.MatchView, error) {
	var v domain.MatchView
	var status, result string
	var home, draw, away pgtype.Numeric
	var bet *string
	targets := append(matchScanTargets(&v.Match, &status, &result, &home, &draw, &away), &v.HomeTeam, &v.AwayTeam, &bet)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	if err := finishMatch(&v.Match, status, result, home, draw, away); err != nil {
		return nil, fmt.Errorf("scan match %d: %w", v.FixtureID, err)
	}
	if bet != nil {
		o := domain.Outcome(*bet)
		v.UserBet = &o
	}
	return &v, nil
}
