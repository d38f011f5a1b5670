// Package ingest pulls fixtures, results and odds from the provider into the store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/provider"
)

// Source is the read side of the fixtures/odds provider.
type Source interface {
	Fixtures(ctx context.Context, competitionID, season int) ([]provider.Fixture, error)
	Teams(ctx context.Context, competitionID, season int) ([]provider.FixtureTeam, error)
	Odds(ctx context.Context, competitionID, season, bookmakerID int, date time.Time) ([]provider.OddsItem, error)
}

// Store is the write side used by ingestion.
type Store interface {
	UpsertTeam(ctx context.Context, team domain.Team) error
	UpsertMatch(ctx context.Context, m domain.Match) (bool, error)
	FindMatch(ctx context.Context, fixtureID int64) (*domain.Match, error)
	MaxMatchday(ctx context.Context, competitionID, season int) (int, error)
	UpdateOdds(ctx context.Context, fixtureID int64, odds domain.Odds) (bool, error)
}

// IngestReport summarises one fixture ingestion pass.
type IngestReport struct {
	Upserted int `json:"upserted"`
	Changed  int `json:"changed"`
	Skipped  int `json:"skipped"`
	Filtered int `json:"filtered"`
}

// FixtureIngestor upserts fixtures and results by fixture id.
type FixtureIngestor struct {
	source      Source
	store       Store
	roundFilter string
	logger      *slog.Logger
}

// NewFixtureIngestor creates an ingestor keeping only rounds whose label contains roundFilter.
func NewFixtureIngestor(source Source, store Store, roundFilter string, logger *slog.Logger) *FixtureIngestor {
	return &FixtureIngestor{source: source, store: store, roundFilter: roundFilter, logger: logger}
}

// IngestFixtures fetches every fixture of a competition season and upserts the matching ones.
// A provider failure aborts the pass; malformed items are skipped and counted.
func (i *FixtureIngestor) IngestFixtures(ctx context.Context, competitionID, season int) (*IngestReport, error) {
	fixtures, err := i.source.Fixtures(ctx, competitionID, season)
	if err != nil {
		return nil, domain.ErrExternalFetch("fixtures", err)
	}

	report := &IngestReport{}
	seenTeams := make(map[int64]bool)

	for _, f := range fixtures {
		if f.DecodeErr != nil {
			i.logger.Warn("skip undecodable fixture", "fixture_id", f.Fixture.ID, "error", f.DecodeErr)
			report.Skipped++
			continue
		}
		if !strings.Contains(f.League.Round, i.roundFilter) {
			report.Filtered++
			continue
		}

		match, teams, err := toMatch(f, competitionID, season)
		if err != nil {
			i.logger.Warn("skip malformed fixture", "fixture_id", f.Fixture.ID, "error", err)
			report.Skipped++
			continue
		}

		if err := i.upsertTeams(ctx, teams, seenTeams); err != nil {
			i.logger.Warn("skip fixture, team upsert failed", "fixture_id", match.FixtureID, "error", err)
			report.Skipped++
			continue
		}

		changed, err := i.store.UpsertMatch(ctx, match)
		if err != nil {
			i.logger.Warn("skip fixture, upsert failed", "fixture_id", match.FixtureID, "error", err)
			report.Skipped++
			continue
		}
		report.Upserted++
		if changed {
			report.Changed++
		}
	}

	i.logger.Info("fixtures ingested",
		"competition", competitionID,
		"season", season,
		"upserted", report.Upserted,
		"changed", report.Changed,
		"skipped", report.Skipped,
		"filtered", report.Filtered,
	)
	return report, nil
}

// IngestTeams refreshes names and logos of the competition's teams.
func (i *FixtureIngestor) IngestTeams(ctx context.Context, competitionID, season int) (int, error) {
	teams, err := i.source.Teams(ctx, competitionID, season)
	if err != nil {
		return 0, domain.ErrExternalFetch("teams", err)
	}

	n := 0
	for _, t := range teams {
		if t.ID <= 0 || t.Name == "" {
			i.logger.Warn("skip malformed team", "team_id", t.ID)
			continue
		}
		if err := i.store.UpsertTeam(ctx, domain.Team{ID: t.ID, Name: t.Name, Logo: t.Logo}); err != nil {
			i.logger.Warn("team upsert failed", "team_id", t.ID, "error", err)
			continue
		}
		n++
	}

	i.logger.Info("teams ingested", "competition", competitionID, "season", season, "upserted", n)
	return n, nil
}

func (i *FixtureIngestor) upsertTeams(ctx context.Context, teams []domain.Team, seen map[int64]bool) error {
	for _, t := range teams {
		if seen[t.ID] {
			continue
		}
		if err := i.store.UpsertTeam(ctx, t); err != nil {
			return err
		}
		seen[t.ID] = true
	}
	return nil
}

// toMatch converts a provider fixture. Teams are returned so they can be upserted first.
func toMatch(f provider.Fixture, competitionID, season int) (domain.Match, []domain.Team, error) {
	id := f.Fixture.ID
	if id <= 0 {
		return domain.Match{}, nil, domain.ErrMalformedItem(id, "missing fixture id")
	}
	if f.Teams.Home == nil || f.Teams.Home.ID <= 0 || f.Teams.Away == nil || f.Teams.Away.ID <= 0 {
		return domain.Match{}, nil, domain.ErrMalformedItem(id, "missing team")
	}

	matchday, err := MatchdayFromRound(f.League.Round)
	if err != nil {
		return domain.Match{}, nil, domain.ErrMalformedItem(id, err.Error())
	}

	kickoff, err := time.Parse(time.RFC3339, f.Fixture.Date)
	if err != nil {
		return domain.Match{}, nil, domain.ErrMalformedItem(id, fmt.Sprintf("bad kickoff %q", f.Fixture.Date))
	}

	m := domain.Match{
		FixtureID:     id,
		CompetitionID: competitionID,
		Season:        season,
		Matchday:      matchday,
		HomeTeamID:    f.Teams.Home.ID,
		AwayTeamID:    f.Teams.Away.ID,
		Kickoff:       kickoff.UTC(),
		Status:        domain.StatusFromShort(f.Fixture.Status.Short),
		StatusShort:   f.Fixture.Status.Short,
		Result:        domain.ResultFromGoals(f.Score.Fulltime.Home, f.Score.Fulltime.Away),
	}
	teams := []domain.Team{
		{ID: f.Teams.Home.ID, Name: f.Teams.Home.Name, Logo: f.Teams.Home.Logo},
		{ID: f.Teams.Away.ID, Name: f.Teams.Away.Name, Logo: f.Teams.Away.Logo},
	}
	return m, teams, nil
}

// MatchdayFromRound extracts the ordinal from a round label such as "Regular Season - 12".
func MatchdayFromRound(round string) (int, error) {
	idx := strings.LastIndex(round, " - ")
	if idx < 0 {
		return 0, fmt.Errorf("round %q has no matchday", round)
	}
	md, err := strconv.Atoi(strings.TrimSpace(round[idx+3:]))
	if err != nil || md <= 0 {
		return 0, fmt.Errorf("round %q has no matchday", round)
	}
	return md, nil
}
