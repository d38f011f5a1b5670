package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matchday/platform/internal/infra"
	"github.com/matchday/platform/internal/ingest"
	"github.com/matchday/platform/internal/notify"
	"github.com/matchday/platform/internal/pipeline"
	"github.com/matchday/platform/internal/provider"
	"github.com/matchday/platform/internal/repository"
	"github.com/matchday/platform/internal/settlement"
	"github.com/robfig/cron/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("settlement failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if cfg.MigrateOnStart {
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	store := repository.NewStore(pool)

	// External providers
	football := provider.NewAPIFootballClient(cfg.APIFootballURL, cfg.APIFootballKey, cfg.APIFootballTimeout, logger)
	mailer := provider.NewBrevoMailer(cfg.BrevoURL, cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailFromName, logger)
	telegram := provider.NewTelegramBot(cfg.TelegramURL, cfg.TelegramBotToken, logger)

	// Pipeline steps
	ingestor := ingest.NewFixtureIngestor(football, store, cfg.RoundFilter, logger)
	adjuster := ingest.NewOddsAdjuster(football, store, cfg.BookmakerID, loc, logger)
	aggregator := settlement.NewAggregator(store, cfg.LeagueConcurrency, logger)
	notifier := notify.NewNotifier(store, mailer, telegram, notify.Settings{
		Location:   loc,
		CutoffHour: cfg.NotifyCutoffHour,
		ChatDelay:  cfg.ChatSendDelay,
		BaseURL:    cfg.BaseURL(),

		ChannelFailureLimit: cfg.ChannelFailureLimit,
	}, logger)

	p := pipeline.New(ingestor, adjuster, aggregator, notifier, store, pipeline.Options{
		CompetitionID: cfg.CompetitionID,
		Season:        cfg.Season,
		OddsWindow:    cfg.OddsWindowDays,
	}, logger)

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	relay := infra.NewOutboxRelay(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)

	settle := func(ctx context.Context) *pipeline.RunReport {
		ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
		defer cancel()

		report := p.Run(ctx)
		flushOutbox(ctx, store, relay, producer, logger)
		return report
	}

	if cfg.SettleCron == "" {
		if report := settle(ctx); !report.OK() {
			return fmt.Errorf("%d of %d steps failed", report.Failed, len(report.Steps))
		}
		return nil
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
	if _, err := c.AddFunc(cfg.SettleCron, func() { settle(ctx) }); err != nil {
		return fmt.Errorf("parse SETTLE_CRON %q: %w", cfg.SettleCron, err)
	}
	c.Start()
	logger.Info("settlement scheduler started", "schedule", cfg.SettleCron, "timezone", loc.String())

	<-ctx.Done()
	logger.Info("shutdown signal received")
	<-c.Stop().Done()
	logger.Info("settlement scheduler stopped")
	return nil
}

// flushOutbox forwards the run's events when Kafka is on. Otherwise they stay queued
// for the outbox-relay process.
func flushOutbox(ctx context.Context, store *repository.Store, relay *infra.OutboxRelay, producer *infra.KafkaProducer, logger *slog.Logger) {
	if !producer.Enabled() {
		if n, err := store.PendingEvents(ctx); err == nil {
			logger.Info("outbox events pending", "count", n)
		}
		return
	}
	n, err := relay.Flush(ctx)
	if err != nil {
		logger.Error("outbox flush failed", "published", n, "error", err)
		return
	}
	logger.Info("outbox flushed", "published", n)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
