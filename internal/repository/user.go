package repository

import (
	"context"
	"fmt"

	"github.com/matchday/platform/internal/domain"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

func (r *userRepo) List(ctx context.Context, db DBTX) ([]domain.User, error) {
	rows, err := db.Query(ctx, `
		SELECT username, name, COALESCE(email, ''), COALESCE(telegram_chat_id, ''), notify_email, notify_chat
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.Username, &u.Name, &u.Email, &u.TelegramChatID, &u.NotifyEmail, &u.NotifyChat); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
