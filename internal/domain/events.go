package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewLeaderboardRebuiltEvent records that a league's scores were replaced.
func NewLeaderboardRebuiltEvent(leagueID string, rows int, volume string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"league_id": leagueID,
		"rows":      rows,
		"volume":    volume,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLeague,
		AggregateID:   leagueID,
		EventType:     EventLeaderboardRebuilt,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewFairplayRebuiltEvent records the number of eligible matches of a league.
func NewFairplayRebuiltEvent(leagueID string, marked int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"league_id": leagueID,
		"marked":    marked,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLeague,
		AggregateID:   leagueID,
		EventType:     EventFairplayRebuilt,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewRunCompletedEvent records the outcome of one pipeline run.
func NewRunCompletedEvent(runID uuid.UUID, summary interface{}) OutboxDraft {
	payload, _ := json.Marshal(summary)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateRun,
		AggregateID:   runID.String(),
		EventType:     EventRunCompleted,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
