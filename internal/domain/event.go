package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the settlement events written to the outbox.
type EventType string

const (
	EventLeaderboardRebuilt EventType = "settlement.leaderboard.rebuilt"
	EventFairplayRebuilt    EventType = "settlement.fairplay.rebuilt"
	EventRunCompleted       EventType = "settlement.run.completed"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateLeague AggregateType = "league"
	AggregateRun    AggregateType = "run"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	ID            int64           `json:"-"`
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Topic is the Kafka topic an event is relayed to.
func (d OutboxDraft) Topic() string {
	return "matchday." + string(d.AggregateType) + "." + string(d.EventType)
}
