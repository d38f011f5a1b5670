package settlement

import (
	"context"
	"sort"

	"github.com/matchday/platform/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ScoreReport summarises one leaderboard rebuild.
type ScoreReport struct {
	Leagues int `json:"leagues"`
	Rows    int `json:"rows"`
}

// LeagueScores is the computed leaderboard of one league before persistence.
type LeagueScores struct {
	Records []domain.ScoreRecord
	Volume  decimal.Decimal
	Cutoff  decimal.Decimal
}

// RebuildScores replaces the scores table from the committed fairplay marks.
// Must run after RebuildFairplay. A failure leaves the previous leaderboards in place.
func (a *Aggregator) RebuildScores(ctx context.Context) (*ScoreReport, error) {
	leagues, err := a.store.Leagues(ctx)
	if err != nil {
		return nil, domain.ErrAggregationFailure("scores", err)
	}
	seasons, err := a.loadSeasons(ctx, leagues)
	if err != nil {
		return nil, domain.ErrAggregationFailure("scores", err)
	}

	perLeague := make([]LeagueScores, len(leagues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, league := range leagues {
		g.Go(func() error {
			eligible, err := a.store.FairplayByLeague(gctx, league.ID)
			if err != nil {
				return err
			}
			data := seasons[seasonKey{league.CompetitionID, league.Season}]
			perLeague[i] = ComputeScores(league, data.matches, data.bets, eligible, data.maxMatchday)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.ErrAggregationFailure("scores", err)
	}

	var records []domain.ScoreRecord
	events := make([]domain.OutboxDraft, 0, len(leagues))
	for i, league := range leagues {
		ls := perLeague[i]
		records = append(records, ls.Records...)
		events = append(events, domain.NewLeaderboardRebuiltEvent(league.ID, len(ls.Records), ls.Volume.StringFixed(3)))
		a.logger.Debug("league scored",
			"league", league.ID,
			"cutoff", ls.Cutoff.String(),
			"volume", ls.Volume.String(),
			"rows", len(ls.Records),
		)
	}

	n, err := a.store.ReplaceScores(ctx, records, events)
	if err != nil {
		a.logger.Error("score rebuild rolled back", "error", err)
		return nil, domain.ErrAggregationFailure("scores", err)
	}
	a.logger.Info("scores rebuilt", "leagues", len(leagues), "rows", n)
	return &ScoreReport{Leagues: len(leagues), Rows: int(n)}, nil
}

// ComputeScores builds one row per league member. A match counts when it is fairplay
// eligible, finished and its matchday lies strictly below the secret cutoff. The league
// volume is the sum of tier multipliers of counted matches, independent of who bet.
func ComputeScores(league domain.League, matches []domain.Match, bets []domain.Bet, eligible []int64, maxMatchday int) LeagueScores {
	cutoff := domain.SecretCutoff(maxMatchday, league.CutoffFraction())
	out := LeagueScores{Volume: decimal.Zero, Cutoff: cutoff}

	marked := make(map[int64]bool, len(eligible))
	for _, id := range eligible {
		marked[id] = true
	}

	counted := make(map[int64]*domain.Match)
	for i := range matches {
		m := &matches[i]
		if !marked[m.FixtureID] || m.Status != domain.StatusFinished || !domain.BeforeCutoff(m.Matchday, cutoff) {
			continue
		}
		counted[m.FixtureID] = m
		out.Volume = out.Volume.Add(domain.TierMultiplier(m.Matchday, maxMatchday))
	}

	// Every member starts at zero so bettors and non-bettors alike get a row.
	rows := make(map[string]*domain.ScoreRecord, len(league.Members))
	for _, u := range league.Members {
		rows[u] = &domain.ScoreRecord{Username: u, LeagueID: league.ID, Score: decimal.Zero}
	}

	for _, b := range bets {
		row, ok := rows[b.Username]
		if !ok {
			continue
		}
		m, ok := counted[b.FixtureID]
		if !ok || !m.Result.Matches(b.Prediction) {
			continue
		}
		row.CorrectBets++
		if m.Odds != nil {
			row.Score = row.Score.Add(m.Odds.For(b.Prediction))
		}
	}

	out.Records = make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		row.FinalBalance = row.Score.Sub(out.Volume)
		out.Records = append(out.Records, *row)
	}
	sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].Username < out.Records[j].Username })
	return out
}
