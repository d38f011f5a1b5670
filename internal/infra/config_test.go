package infra

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "Regular Season", cfg.RoundFilter)
	assert.Equal(t, 8, cfg.BookmakerID)
	assert.Equal(t, 7, cfg.OddsWindowDays)
	assert.Equal(t, 12, cfg.NotifyCutoffHour)
	assert.Equal(t, time.Second, cfg.ChatSendDelay)
	assert.Equal(t, "UTC", cfg.NotifyTimezone)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("API_FOOTBALL_COMPETITION", "39")
	t.Setenv("API_FOOTBALL_SEASON", "2024")
	t.Setenv("CHAT_SEND_DELAY", "250ms")
	t.Setenv("NOTIFY_TIMEZONE", "Europe/Rome")
	t.Setenv("PUBLIC_BASE_URL", "https://bets.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 39, cfg.CompetitionID)
	assert.Equal(t, 2024, cfg.Season)
	assert.Equal(t, 250*time.Millisecond, cfg.ChatSendDelay)
	assert.Equal(t, "https://bets.example.com", cfg.BaseURL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Rome", loc.String())
}

func TestConfigDSN(t *testing.T) {
	cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "db", PGPort: 5432, PGDatabase: "matchday"}
	assert.Equal(t, "postgres://u:p@db:5432/matchday?sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			NotifyTimezone:    "UTC",
			NotifyCutoffHour:  12,
			OddsWindowDays:    7,
			LeagueConcurrency: 4,
			JWTSecret:         "0123456789abcdef0123456789abcdef",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"insecure default secret", func(c *Config) { c.JWTSecret = "change-me-in-production" }, "insecure default"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "too short"},
		{"insecure allowed", func(c *Config) { c.JWTSecret = "short"; c.AllowInsecureDefaults = true }, ""},
		{"cutoff hour out of range", func(c *Config) { c.NotifyCutoffHour = 25 }, "NOTIFY_CUTOFF_HOUR"},
		{"window too wide", func(c *Config) { c.OddsWindowDays = 30 }, "ODDS_WINDOW_DAYS"},
		{"no league workers", func(c *Config) { c.LeagueConcurrency = 0 }, "LEAGUE_CONCURRENCY"},
		{"unknown timezone", func(c *Config) { c.NotifyTimezone = "Mars/Olympus" }, "NOTIFY_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.ValidateAPI()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_BatchIgnoresSessionSecret(t *testing.T) {
	cfg := &Config{
		NotifyTimezone:    "Europe/Rome",
		NotifyCutoffHour:  12,
		OddsWindowDays:    7,
		LeagueConcurrency: 4,
		JWTSecret:         "change-me-in-production",
	}
	require.NoError(t, cfg.Validate())

	err := cfg.ValidateAPI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestConfigSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
