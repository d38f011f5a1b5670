package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/provider"
	"github.com/shopspring/decimal"
)

// MaxOddsWindow bounds how many days ahead odds are fetched.
const MaxOddsWindow = 14

// OddsReport summarises one tiering pass.
type OddsReport struct {
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Days       int `json:"days"`
	FailedDays int `json:"failed_days"`
}

// OddsAdjuster writes provider odds scaled by the matchday tier multiplier.
type OddsAdjuster struct {
	source      Source
	store       Store
	bookmakerID int
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewOddsAdjuster creates an adjuster reading one bookmaker's prices. Days are counted in loc.
func NewOddsAdjuster(source Source, store Store, bookmakerID int, loc *time.Location, logger *slog.Logger) *OddsAdjuster {
	if loc == nil {
		loc = time.UTC
	}
	return &OddsAdjuster{
		source:      source,
		store:       store,
		bookmakerID: bookmakerID,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// AdjustOdds fetches odds for each day from today over window days and overwrites the stored
// odds with raw × tier. Stored odds are never an input, so re-running cannot compound.
// A failed day is reported and the remaining days still run.
func (a *OddsAdjuster) AdjustOdds(ctx context.Context, competitionID, season, window int) (*OddsReport, error) {
	if window < 1 || window > MaxOddsWindow {
		return nil, domain.ErrValidation(fmt.Sprintf("odds window must be within 1..%d days, got %d", MaxOddsWindow, window))
	}

	maxMatchday, err := a.store.MaxMatchday(ctx, competitionID, season)
	if err != nil {
		return nil, fmt.Errorf("max matchday: %w", err)
	}
	report := &OddsReport{}
	if maxMatchday == 0 {
		a.logger.Warn("no matches stored, skipping odds", "competition", competitionID, "season", season)
		return report, nil
	}

	today := a.now().In(a.loc)
	var errs []error
	for d := 0; d < window; d++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		day := today.AddDate(0, 0, d)
		report.Days++

		items, err := a.source.Odds(ctx, competitionID, season, a.bookmakerID, day)
		if err != nil {
			report.FailedDays++
			fetchErr := domain.ErrExternalFetch("odds "+day.Format("2006-01-02"), err)
			a.logger.Error("odds fetch failed", "date", day.Format("2006-01-02"), "error", err)
			errs = append(errs, fetchErr)
			continue
		}

		for _, item := range items {
			if a.applyItem(ctx, item, maxMatchday) {
				report.Updated++
			} else {
				report.Skipped++
			}
		}
	}

	a.logger.Info("odds adjusted",
		"competition", competitionID,
		"season", season,
		"max_matchday", maxMatchday,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed_days", report.FailedDays,
	)
	return report, errors.Join(errs...)
}

func (a *OddsAdjuster) applyItem(ctx context.Context, item provider.OddsItem, maxMatchday int) bool {
	id := item.Fixture.ID
	raw, err := ThreeWayOdds(item)
	if err != nil {
		a.logger.Debug("skip odds item", "fixture_id", id, "error", err)
		return false
	}

	match, err := a.store.FindMatch(ctx, id)
	if err != nil {
		if !domain.HasCode(err, domain.CodeNotFound) {
			a.logger.Warn("odds match lookup failed", "fixture_id", id, "error", err)
		}
		return false
	}

	multiplier := domain.TierMultiplier(match.Matchday, maxMatchday)
	updated, err := a.store.UpdateOdds(ctx, id, raw.Scale(multiplier))
	if err != nil {
		a.logger.Warn("odds update failed", "fixture_id", id, "error", err)
		return false
	}
	return updated
}

// ThreeWayOdds extracts home/draw/away prices from the first bookmaker's first market.
// The market must expose exactly those three outcomes with positive prices.
func ThreeWayOdds(item provider.OddsItem) (domain.Odds, error) {
	id := item.Fixture.ID
	if item.DecodeErr != nil {
		return domain.Odds{}, domain.ErrMalformedItem(id, item.DecodeErr.Error())
	}
	if len(item.Bookmakers) == 0 || len(item.Bookmakers[0].Bets) == 0 {
		return domain.Odds{}, domain.ErrMalformedItem(id, "no market")
	}
	values := item.Bookmakers[0].Bets[0].Values
	if len(values) != 3 {
		return domain.Odds{}, domain.ErrMalformedItem(id, fmt.Sprintf("expected 3 outcomes, got %d", len(values)))
	}

	var odds domain.Odds
	seen := make(map[string]bool, 3)
	for _, v := range values {
		price, err := decimal.NewFromString(v.Odd)
		if err != nil {
			return domain.Odds{}, domain.ErrMalformedItem(id, fmt.Sprintf("bad odd %q", v.Odd))
		}
		switch v.Value {
		case "Home":
			odds.Home = price
		case "Draw":
			odds.Draw = price
		case "Away":
			odds.Away = price
		default:
			return domain.Odds{}, domain.ErrMalformedItem(id, fmt.Sprintf("unexpected outcome %q", v.Value))
		}
		if seen[v.Value] {
			return domain.Odds{}, domain.ErrMalformedItem(id, fmt.Sprintf("duplicate outcome %q", v.Value))
		}
		seen[v.Value] = true
	}
	if !odds.Valid() {
		return domain.Odds{}, domain.ErrMalformedItem(id, "non-positive odds")
	}
	return odds, nil
}
