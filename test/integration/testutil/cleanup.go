//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll empties every table, children first.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"notification_tokens",
		"scores",
		"fairplay",
		"bets",
		"league_members",
		"leagues",
		"users",
		"matches",
		"teams",
	}
	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
	}
}
