//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/matchday/platform/internal/domain"
	"github.com/shopspring/decimal"
)

// Competition and season every seeded fixture belongs to.
const (
	CompetitionID = 135
	Season        = 2025
)

// SeedUser inserts a user with email notifications enabled.
func (env *TestEnv) SeedUser(username string) {
	env.t.Helper()
	env.exec(`INSERT INTO users (username, name, email, notify_email) VALUES ($1, $1, $1 || '@example.com', true)`, username)
}

// SeedLeague inserts a league for the seeded season and its members.
func (env *TestEnv) SeedLeague(id string, members ...string) {
	env.t.Helper()
	env.exec(`INSERT INTO leagues (id, name, competition_id, season) VALUES ($1, $1, $2, $3)`, id, CompetitionID, Season)
	for _, m := range members {
		env.exec(`INSERT INTO league_members (league_id, username) VALUES ($1, $2)`, id, m)
	}
}

// SeedMatch stores a fixture between teams 1 and 2, creating the teams if needed.
func (env *TestEnv) SeedMatch(m domain.Match) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, team := range []domain.Team{{ID: 1, Name: "Genoa"}, {ID: 2, Name: "Lecce"}} {
		if err := env.Store.UpsertTeam(ctx, team); err != nil {
			env.t.Fatalf("SeedMatch: %v", err)
		}
	}
	m.CompetitionID, m.Season, m.HomeTeamID, m.AwayTeamID = CompetitionID, Season, 1, 2
	if m.Result == "" {
		m.Result = domain.ResultUnknown
	}
	if _, err := env.Store.UpsertMatch(ctx, m); err != nil {
		env.t.Fatalf("SeedMatch: %v", err)
	}
	if m.Odds != nil {
		if _, err := env.Store.UpdateOdds(ctx, m.FixtureID, *m.Odds); err != nil {
			env.t.Fatalf("SeedMatch odds: %v", err)
		}
	}
}

// SeedBet writes a bet directly, bypassing the kickoff rule, so history can be seeded for
// matches that were played already.
func (env *TestEnv) SeedBet(b domain.Bet) {
	env.t.Helper()
	env.exec(`INSERT INTO bets (username, id_fixture, prediction, updated_at) VALUES ($1, $2, $3, $4)`,
		b.Username, b.FixtureID, string(b.Prediction), b.UpdatedAt)
}

// Odds builds three-way odds from strings.
func Odds(home, draw, away string) *domain.Odds {
	return &domain.Odds{
		Home: decimal.RequireFromString(home),
		Draw: decimal.RequireFromString(draw),
		Away: decimal.RequireFromString(away),
	}
}

// Token returns a session token for username.
func (env *TestEnv) Token(username string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(username)
	if err != nil {
		env.t.Fatalf("Token: %v", err)
	}
	return token
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// AuthGET performs a GET request with a bearer token.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, env.Server.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return env.do(req)
}

// AuthPOST performs a JSON POST request with a bearer token.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		env.t.Fatalf("marshal body: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, env.Server.URL+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return env.do(req)
}

func (env *TestEnv) do(req *http.Request) *http.Response {
	env.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func (env *TestEnv) exec(sql string, args ...interface{}) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := env.Pool.Exec(ctx, sql, args...); err != nil {
		env.t.Fatalf("exec %q: %v", sql, err)
	}
}
