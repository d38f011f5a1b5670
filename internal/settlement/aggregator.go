// Package settlement rebuilds the derived per-league tables: fairplay marks and scores.
package settlement

import (
	"context"
	"log/slog"

	"github.com/matchday/platform/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Store is the data access needed by the rebuilds.
type Store interface {
	Leagues(ctx context.Context) ([]domain.League, error)
	SeasonMatches(ctx context.Context, competitionID, season int) ([]domain.Match, error)
	SeasonBets(ctx context.Context, competitionID, season int) ([]domain.Bet, error)
	FairplayByLeague(ctx context.Context, leagueID string) ([]int64, error)
	ReplaceFairplay(ctx context.Context, marks []domain.FairplayMark, events []domain.OutboxDraft) (int64, error)
	ReplaceScores(ctx context.Context, records []domain.ScoreRecord, events []domain.OutboxDraft) (int64, error)
}

// Aggregator recomputes fairplay marks and leaderboards from matches and bets.
// Leagues are computed concurrently; each rebuild is persisted in one transaction.
type Aggregator struct {
	store       Store
	concurrency int
	logger      *slog.Logger
}

// NewAggregator creates an aggregator computing at most concurrency leagues at a time.
func NewAggregator(store Store, concurrency int, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{store: store, concurrency: concurrency, logger: logger}
}

type seasonKey struct {
	competitionID int
	season        int
}

// seasonData is the read-only input shared by every league of one competition season.
type seasonData struct {
	matches     []domain.Match
	bets        []domain.Bet
	maxMatchday int
}

// loadSeasons reads matches and bets once per distinct competition season.
func (a *Aggregator) loadSeasons(ctx context.Context, leagues []domain.League) (map[seasonKey]*seasonData, error) {
	keys := make([]seasonKey, 0, len(leagues))
	seen := make(map[seasonKey]bool)
	for _, l := range leagues {
		k := seasonKey{l.CompetitionID, l.Season}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	loaded := make([]*seasonData, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, k := range keys {
		g.Go(func() error {
			matches, err := a.store.SeasonMatches(gctx, k.competitionID, k.season)
			if err != nil {
				return err
			}
			bets, err := a.store.SeasonBets(gctx, k.competitionID, k.season)
			if err != nil {
				return err
			}
			data := &seasonData{matches: matches, bets: bets}
			for _, m := range matches {
				data.maxMatchday = max(data.maxMatchday, m.Matchday)
			}
			loaded[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[seasonKey]*seasonData, len(keys))
	for i, k := range keys {
		out[k] = loaded[i]
	}
	return out, nil
}

func memberSet(members []string) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}
