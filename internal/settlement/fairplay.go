package settlement

import (
	"context"

	"github.com/matchday/platform/internal/domain"
	"golang.org/x/sync/errgroup"
)

// RebuildFairplay replaces every fairplay mark. A match is marked for a league iff every
// member of the league has a bet on it. A failure leaves the previous marks in place.
func (a *Aggregator) RebuildFairplay(ctx context.Context) (int, error) {
	leagues, err := a.store.Leagues(ctx)
	if err != nil {
		return 0, domain.ErrAggregationFailure("fairplay", err)
	}
	seasons, err := a.loadSeasons(ctx, leagues)
	if err != nil {
		return 0, domain.ErrAggregationFailure("fairplay", err)
	}

	perLeague := make([][]domain.FairplayMark, len(leagues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, league := range leagues {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data := seasons[seasonKey{league.CompetitionID, league.Season}]
			perLeague[i] = FairplayMarks(league, data.matches, data.bets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, domain.ErrAggregationFailure("fairplay", err)
	}

	var marks []domain.FairplayMark
	events := make([]domain.OutboxDraft, 0, len(leagues))
	for i, league := range leagues {
		marks = append(marks, perLeague[i]...)
		events = append(events, domain.NewFairplayRebuiltEvent(league.ID, len(perLeague[i])))
		a.logger.Debug("fairplay computed", "league", league.ID, "members", len(league.Members), "marked", len(perLeague[i]))
	}

	n, err := a.store.ReplaceFairplay(ctx, marks, events)
	if err != nil {
		a.logger.Error("fairplay rebuild rolled back", "error", err)
		return 0, domain.ErrAggregationFailure("fairplay", err)
	}
	a.logger.Info("fairplay rebuilt", "leagues", len(leagues), "marked", n)
	return int(n), nil
}

// FairplayMarks returns the league's eligible matches. Bets from non-members are ignored
// and a league without members has no eligible match.
func FairplayMarks(league domain.League, matches []domain.Match, bets []domain.Bet) []domain.FairplayMark {
	members := memberSet(league.Members)
	if len(members) == 0 {
		return nil
	}

	bettors := make(map[int64]map[string]bool)
	for _, b := range bets {
		if !members[b.Username] {
			continue
		}
		set, ok := bettors[b.FixtureID]
		if !ok {
			set = make(map[string]bool, len(members))
			bettors[b.FixtureID] = set
		}
		set[b.Username] = true
	}

	var marks []domain.FairplayMark
	for _, m := range matches {
		if len(bettors[m.FixtureID]) == len(members) {
			marks = append(marks, domain.FairplayMark{FixtureID: m.FixtureID, LeagueID: league.ID})
		}
	}
	return marks
}
