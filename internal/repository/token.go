package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/matchday/platform/internal/domain"
)

type tokenRepo struct{}

// NewTokenRepository returns a pgx-backed TokenRepository.
func NewTokenRepository() TokenRepository {
	return &tokenRepo{}
}

var tokenColumns = []string{"token", "username", "id_fixture", "outcome"}

func (r *tokenRepo) Replace(ctx context.Context, tx DBTX, tokens []domain.NotificationToken) (int64, error) {
	rows := make([][]interface{}, len(tokens))
	for i, t := range tokens {
		rows[i] = []interface{}{t.Token, t.Username, t.FixtureID, string(t.Outcome)}
	}
	return replaceAll(ctx, tx, "notification_tokens", tokenColumns, rows)
}

func (r *tokenRepo) Find(ctx context.Context, db DBTX, token string) (*domain.NotificationToken, error) {
	var t domain.NotificationToken
	var outcome string
	err := db.QueryRow(ctx, `
		SELECT token, username, id_fixture, outcome
		FROM notification_tokens WHERE token = $1`, token).Scan(&t.Token, &t.Username, &t.FixtureID, &outcome)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTokenNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	t.Outcome = domain.Outcome(outcome)
	return &t, nil
}
