// Package notify mints the daily re-bet tokens and sends each user a digest of today's matches.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/guard"
)

// Store is the data access needed to build the daily digests.
type Store interface {
	Users(ctx context.Context) ([]domain.User, error)
	MatchesBetween(ctx context.Context, from, to time.Time, username string) ([]domain.MatchView, error)
	BetsForFixtures(ctx context.Context, fixtureIDs []int64) ([]domain.Bet, error)
	ReplaceTokens(ctx context.Context, tokens []domain.NotificationToken) (int64, error)
}

// Mailer sends one transactional email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// ChatSender sends one chat message.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Settings controls when and how digests are sent.
type Settings struct {
	Location   *time.Location
	CutoffHour int
	ChatDelay  time.Duration
	BaseURL    string
	// ChannelFailureLimit consecutive failures on one channel stop further sends on it
	// for the rest of the run.
	ChannelFailureLimit int
}

// DefaultChannelFailureLimit applies when Settings.ChannelFailureLimit is not set.
const DefaultChannelFailureLimit = 5

// NotifyReport summarises one notification run.
type NotifyReport struct {
	Skipped bool `json:"skipped"`
	Matches int  `json:"matches"`
	Tokens  int  `json:"tokens"`
	Users   int  `json:"users"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}

// Notifier generates tokens and dispatches digests over email and chat.
type Notifier struct {
	store    Store
	mailer   Mailer
	chat     ChatSender
	settings Settings
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newToken func() (string, error)
	logger   *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(store Store, mailer Mailer, chat ChatSender, settings Settings, logger *slog.Logger) *Notifier {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.ChannelFailureLimit <= 0 {
		settings.ChannelFailureLimit = DefaultChannelFailureLimit
	}
	return &Notifier{
		store:    store,
		mailer:   mailer,
		chat:     chat,
		settings: settings,
		now:      time.Now,
		sleep:    sleepContext,
		newToken: NewToken,
		logger:   logger,
	}
}

// GenerateAndNotify replaces all tokens with fresh ones for today's matches and sends every
// user with a configured channel one digest. It does nothing from the cutoff hour onwards
// so a second run later in the day cannot send duplicates.
func (n *Notifier) GenerateAndNotify(ctx context.Context) (*NotifyReport, error) {
	now := n.now().In(n.settings.Location)
	if now.Hour() >= n.settings.CutoffHour {
		n.logger.Info("notification window closed", "local_time", now.Format("15:04"), "cutoff_hour", n.settings.CutoffHour)
		return &NotifyReport{Skipped: true}, nil
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.settings.Location)
	matches, err := n.store.MatchesBetween(ctx, start, start.AddDate(0, 0, 1), "")
	if err != nil {
		return nil, fmt.Errorf("today's matches: %w", err)
	}
	users, err := n.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.FixtureID
	}
	var bets []domain.Bet
	if len(ids) > 0 {
		if bets, err = n.store.BetsForFixtures(ctx, ids); err != nil {
			return nil, fmt.Errorf("bets for today: %w", err)
		}
	}

	digests, tokens, err := n.buildDigests(users, matches, bets)
	if err != nil {
		return nil, err
	}
	stored, err := n.store.ReplaceTokens(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}

	report := &NotifyReport{Matches: len(matches), Tokens: int(stored)}
	if len(matches) == 0 {
		n.logger.Info("no matches today", "date", start.Format("2006-01-02"))
		return report, nil
	}

	n.dispatch(ctx, digests, report)
	n.logger.Info("notifications dispatched",
		"date", start.Format("2006-01-02"),
		"matches", report.Matches,
		"tokens", report.Tokens,
		"users", report.Users,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	return report, nil
}

// buildDigests mints one token per (match, user, outcome) and groups them per user.
func (n *Notifier) buildDigests(users []domain.User, matches []domain.MatchView, bets []domain.Bet) (map[string]*Digest, []domain.NotificationToken, error) {
	type betKey struct {
		user    string
		fixture int64
	}
	existing := make(map[betKey]domain.Outcome, len(bets))
	for _, b := range bets {
		existing[betKey{b.Username, b.FixtureID}] = b.Prediction
	}

	digests := make(map[string]*Digest, len(users))
	tokens := make([]domain.NotificationToken, 0, len(users)*len(matches)*len(domain.Outcomes))
	for _, u := range users {
		d := &Digest{User: u, Matches: make([]DigestMatch, 0, len(matches)), Location: n.settings.Location}
		for _, m := range matches {
			dm := DigestMatch{
				FixtureID: m.FixtureID,
				HomeTeam:  m.HomeTeam,
				AwayTeam:  m.AwayTeam,
				Kickoff:   m.Kickoff,
				Odds:      m.Odds,
			}
			if o, ok := existing[betKey{u.Username, m.FixtureID}]; ok {
				dm.Bet = &o
			}
			for i, outcome := range domain.Outcomes {
				tok, err := n.newToken()
				if err != nil {
					return nil, nil, fmt.Errorf("mint token: %w", err)
				}
				dm.Tokens[i] = tok
				tokens = append(tokens, domain.NotificationToken{
					Token:     tok,
					Username:  u.Username,
					FixtureID: m.FixtureID,
					Outcome:   outcome,
				})
			}
			d.Matches = append(d.Matches, dm)
		}
		digests[u.Username] = d
	}
	return digests, tokens, nil
}

// dispatch sends every digest over each of the user's channels. A failed send is logged
// and counted; it never stops the remaining sends. A channel that keeps failing is
// tripped and its remaining sends are counted as failed without being attempted.
func (n *Notifier) dispatch(ctx context.Context, digests map[string]*Digest, report *NotifyReport) {
	breaker := guard.NewCircuitBreaker(n.settings.ChannelFailureLimit, 24*time.Hour)

	usernames := make([]string, 0, len(digests))
	for u := range digests {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)

	chatSends := 0
	for _, username := range usernames {
		d := digests[username]
		channels := d.User.Channels()
		if len(channels) == 0 {
			n.logger.Debug("no channel configured", "username", username)
			continue
		}
		report.Users++

		for _, ch := range channels {
			if ctx.Err() != nil {
				return
			}
			if res := breaker.Check(ctx, string(ch)); !res.Allowed {
				report.Failed++
				n.logger.Warn("notification skipped", "channel", ch, "username", username, "reason", res.Reason)
				continue
			}
			var err error
			switch ch {
			case domain.ChannelEmail:
				err = n.sendEmail(ctx, d)
			case domain.ChannelChat:
				if chatSends > 0 {
					if err := n.sleep(ctx, n.settings.ChatDelay); err != nil {
						return
					}
				}
				chatSends++
				err = n.chat.SendMessage(ctx, d.User.TelegramChatID, ChatText(d, n.settings.BaseURL))
			}
			if err != nil {
				breaker.RecordFailure(string(ch))
				report.Failed++
				n.logger.Warn("notification failed", "error", domain.ErrDispatch(ch, username, err))
				continue
			}
			breaker.RecordSuccess(string(ch))
			report.Sent++
		}
	}
}

func (n *Notifier) sendEmail(ctx context.Context, d *Digest) error {
	body, err := EmailHTML(d, n.settings.BaseURL)
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(ctx, d.User.Email, emailSubject(d), body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
