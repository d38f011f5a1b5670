package infra

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"matchday"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"matchday"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"matchday"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`

	// Fixtures/odds provider
	APIFootballURL     string        `env:"API_FOOTBALL_URL" envDefault:"https://v3.football.api-sports.io"`
	APIFootballKey     string        `env:"API_FOOTBALL_KEY"`
	APIFootballTimeout time.Duration `env:"API_FOOTBALL_TIMEOUT" envDefault:"30s"`
	CompetitionID      int           `env:"API_FOOTBALL_COMPETITION" envDefault:"135"`
	Season             int           `env:"API_FOOTBALL_SEASON" envDefault:"2025"`
	BookmakerID        int           `env:"API_FOOTBALL_BOOKMAKER" envDefault:"8"`
	RoundFilter        string        `env:"ROUNDS_IMPORT" envDefault:"Regular Season"`
	OddsWindowDays     int           `env:"ODDS_WINDOW_DAYS" envDefault:"7"`

	// Notifications
	NotifyTimezone   string        `env:"NOTIFY_TIMEZONE" envDefault:"UTC"`
	NotifyCutoffHour int           `env:"NOTIFY_CUTOFF_HOUR" envDefault:"12"`
	ChatSendDelay    time.Duration `env:"CHAT_SEND_DELAY" envDefault:"1s"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3100"`
	BrevoURL         string        `env:"BREVO_URL" envDefault:"https://api.brevo.com"`
	BrevoAPIKey      string        `env:"BREVO_API_KEY"`
	MailFrom         string        `env:"MAIL_FROM" envDefault:"noreply@matchday.local"`
	MailFromName     string        `env:"MAIL_FROM_NAME" envDefault:"Matchday"`
	TelegramURL      string        `env:"TELEGRAM_URL" envDefault:"https://api.telegram.org"`
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`

	ChannelFailureLimit int `env:"NOTIFY_CHANNEL_FAILURE_LIMIT" envDefault:"5"`

	// Settlement
	LeagueConcurrency int           `env:"LEAGUE_CONCURRENCY" envDefault:"4"`
	SettleCron        string        `env:"SETTLE_CRON"`
	SettleTimeout     time.Duration `env:"SETTLE_TIMEOUT" envDefault:"30m"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"1h"`

	// Server
	APIPort           int    `env:"API_PORT" envDefault:"3100"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
	TokenRateLimit    int    `env:"TOKEN_RATE_LIMIT" envDefault:"30"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Outbox relay
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.NotifyCutoffHour < 0 || c.NotifyCutoffHour > 24 {
		return fmt.Errorf("NOTIFY_CUTOFF_HOUR must be within 0..24, got %d", c.NotifyCutoffHour)
	}
	if c.OddsWindowDays < 1 || c.OddsWindowDays > 14 {
		return fmt.Errorf("ODDS_WINDOW_DAYS must be within 1..14, got %d", c.OddsWindowDays)
	}
	if c.LeagueConcurrency < 1 {
		return fmt.Errorf("LEAGUE_CONCURRENCY must be positive, got %d", c.LeagueConcurrency)
	}
	if c.ChatSendDelay < 0 {
		return fmt.Errorf("CHAT_SEND_DELAY must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateAPI adds the session secret checks needed by the HTTP API to Validate.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// Location returns the time zone that defines "today" for notifications.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.NotifyTimezone)
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_TIMEZONE %q: %w", c.NotifyTimezone, err)
	}
	return loc, nil
}

// BaseURL returns PUBLIC_BASE_URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/")
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
