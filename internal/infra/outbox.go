package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matchday/platform/internal/domain"
)

// Publisher is the sink the relay forwards outbox events to.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay moves committed settlement events from event_outbox to Kafka.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxRelay creates a relay that publishes up to batchSize events per poll.
func NewOutboxRelay(pool *pgxpool.Pool, producer Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		pool:      pool,
		producer:  producer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				r.logger.Error("outbox relay poll", "error", err)
			}
		}
	}
}

// Flush publishes pending events until the table is drained or a publish fails.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.poll(ctx)
		total += n
		if err != nil || n < r.batchSize {
			return total, err
		}
	}
}

func (r *OutboxRelay) poll(ctx context.Context) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload, occurred_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxDraft
	for rows.Next() {
		var e domain.OutboxDraft
		if err := rows.Scan(&e.ID, &e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.OccurredAt); err != nil {
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	published := 0
	for _, e := range events {
		msg, _ := json.Marshal(e)
		if err := r.producer.Publish(ctx, e.Topic(), []byte(e.AggregateID), msg); err != nil {
			// Order within an aggregate matters, so stop at the first failure.
			return published, fmt.Errorf("publish event %s: %w", e.EventID, err)
		}

		if _, err := r.pool.Exec(ctx, `UPDATE event_outbox SET published_at = now() WHERE id = $1`, e.ID); err != nil {
			return published, fmt.Errorf("mark published %d: %w", e.ID, err)
		}
		published++
	}

	if published > 0 {
		r.logger.Debug("outbox poll complete", "published", published)
	}
	return published, nil
}
