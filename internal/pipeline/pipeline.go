// Package pipeline runs the settlement batch: ingestion, odds tiering, fairplay, scores and
// notifications, strictly in that order.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/ingest"
	"github.com/matchday/platform/internal/notify"
	"github.com/matchday/platform/internal/settlement"
)

// Step names, in execution order.
const (
	StepTeams    = "teams"
	StepFixtures = "fixtures"
	StepOdds     = "odds"
	StepFairplay = "fairplay"
	StepScores   = "scores"
	StepNotify   = "notify"
)

type Ingestor interface {
	IngestTeams(ctx context.Context, competitionID, season int) (int, error)
	IngestFixtures(ctx context.Context, competitionID, season int) (*ingest.IngestReport, error)
}

type OddsAdjuster interface {
	AdjustOdds(ctx context.Context, competitionID, season, window int) (*ingest.OddsReport, error)
}

type Aggregator interface {
	RebuildFairplay(ctx context.Context) (int, error)
	RebuildScores(ctx context.Context) (*settlement.ScoreReport, error)
}

type Notifier interface {
	GenerateAndNotify(ctx context.Context) (*notify.NotifyReport, error)
}

// EventRecorder stores an event in the outbox.
type EventRecorder interface {
	RecordEvent(ctx context.Context, draft domain.OutboxDraft) error
}

// Options selects the competition season and odds window of a run.
type Options struct {
	CompetitionID int
	Season        int
	OddsWindow    int
}

// StepReport is the outcome of one step.
type StepReport struct {
	Name     string      `json:"name"`
	Duration string      `json:"duration"`
	Error    string      `json:"error,omitempty"`
	Result   interface{} `json:"result,omitempty"`
}

// RunReport is the outcome of one batch.
type RunReport struct {
	RunID     uuid.UUID    `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Steps     []StepReport `json:"steps"`
	Failed    int          `json:"failed"`
}

// OK reports whether every step succeeded.
func (r *RunReport) OK() bool { return r.Failed == 0 }

// Pipeline wires the batch steps together.
type Pipeline struct {
	ingestor   Ingestor
	odds       OddsAdjuster
	aggregator Aggregator
	notifier   Notifier
	events     EventRecorder
	opts       Options
	logger     *slog.Logger
}

// New creates a Pipeline.
func New(ingestor Ingestor, odds OddsAdjuster, aggregator Aggregator, notifier Notifier, events EventRecorder, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		ingestor:   ingestor,
		odds:       odds,
		aggregator: aggregator,
		notifier:   notifier,
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes every step in order. A failing step is recorded and the next one still
// runs; the batch as a whole never aborts on a step error. Only cancellation stops it.
func (p *Pipeline) Run(ctx context.Context) *RunReport {
	report := &RunReport{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	logger := p.logger.With("run_id", report.RunID.String())
	logger.Info("settlement run started", "competition", p.opts.CompetitionID, "season", p.opts.Season)

	steps := []struct {
		name string
		fn   func(context.Context) (interface{}, error)
	}{
		{StepTeams, func(ctx context.Context) (interface{}, error) {
			return p.ingestor.IngestTeams(ctx, p.opts.CompetitionID, p.opts.Season)
		}},
		{StepFixtures, func(ctx context.Context) (interface{}, error) {
			return p.ingestor.IngestFixtures(ctx, p.opts.CompetitionID, p.opts.Season)
		}},
		{StepOdds, func(ctx context.Context) (interface{}, error) {
			return p.odds.AdjustOdds(ctx, p.opts.CompetitionID, p.opts.Season, p.opts.OddsWindow)
		}},
		{StepFairplay, func(ctx context.Context) (interface{}, error) {
			return p.aggregator.RebuildFairplay(ctx)
		}},
		{StepScores, func(ctx context.Context) (interface{}, error) {
			return p.aggregator.RebuildScores(ctx)
		}},
		{StepNotify, func(ctx context.Context) (interface{}, error) {
			return p.notifier.GenerateAndNotify(ctx)
		}},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			report.Steps = append(report.Steps, StepReport{Name: step.name, Error: "cancelled"})
			report.Failed++
			continue
		}
		start := time.Now()
		result, err := step.fn(ctx)
		sr := StepReport{Name: step.name, Duration: time.Since(start).Round(time.Millisecond).String(), Result: result}
		if err != nil {
			sr.Result = nil
			sr.Error = err.Error()
			report.Failed++
			logger.Error("step failed", "step", step.name, "error", err)
		} else {
			logger.Info("step completed", "step", step.name, "duration", sr.Duration)
		}
		report.Steps = append(report.Steps, sr)
	}

	// The run event is recorded even after cancellation.
	if err := p.events.RecordEvent(context.WithoutCancel(ctx), domain.NewRunCompletedEvent(report.RunID, report)); err != nil {
		logger.Error("record run event failed", "error", err)
	}
	logger.Info("settlement run finished", "failed_steps", report.Failed)
	return report
}
