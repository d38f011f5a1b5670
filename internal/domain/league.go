package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// League is a private competition group scored over one competition season.
type League struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CompetitionID int             `json:"competition_id"`
	Season        int             `json:"season"`
	SecretCutoff  decimal.Decimal `json:"secret_cutoff"`
	Members       []string        `json:"members,omitempty"`
}

// CutoffFraction returns the configured fraction, falling back to the default.
func (l *League) CutoffFraction() decimal.Decimal {
	if l.SecretCutoff.IsPositive() {
		return l.SecretCutoff
	}
	return DefaultSecretCutoff
}

// Channel is a notification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// User is a competition participant and their notification settings.
type User struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	TelegramChatID string `json:"telegram_chat_id,omitempty"`
	NotifyEmail    bool   `json:"notify_email"`
	NotifyChat     bool   `json:"notify_chat"`
}

// Channels returns the enabled and configured channels of the user.
func (u *User) Channels() []Channel {
	var out []Channel
	if u.NotifyEmail && u.Email != "" {
		out = append(out, ChannelEmail)
	}
	if u.NotifyChat && u.TelegramChatID != "" {
		out = append(out, ChannelChat)
	}
	return out
}

// Bet is one user's prediction on one match.
type Bet struct {
	Username   string    `json:"username"`
	FixtureID  int64     `json:"id_fixture"`
	Prediction Outcome   `json:"prediction"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FairplayMark flags a match as eligible for scoring in a league.
type FairplayMark struct {
	FixtureID int64  `json:"id_fixture"`
	LeagueID  string `json:"league_id"`
}

// ScoreRecord is one leaderboard row.
type ScoreRecord struct {
	Username     string          `json:"username"`
	LeagueID     string          `json:"league_id"`
	Score        decimal.Decimal `json:"score"`
	CorrectBets  int             `json:"correct_bets"`
	FinalBalance decimal.Decimal `json:"final_balance"`
}

// NotificationToken binds an opaque re-bet credential to a user, match and outcome.
type NotificationToken struct {
	Token     string  `json:"token"`
	Username  string  `json:"username"`
	FixtureID int64   `json:"id_fixture"`
	Outcome   Outcome `json:"outcome"`
}

// Confirmation is returned after a successful token redemption.
type Confirmation struct {
	Username  string  `json:"username"`
	FixtureID int64   `json:"id_fixture"`
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	Outcome   Outcome `json:"outcome"`
}
