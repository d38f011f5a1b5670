package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ── API-Football Types ──

type envelope struct {
	Errors   json.RawMessage `json:"errors"`
	Results  int             `json:"results"`
	Paging   paging          `json:"paging"`
	Response json.RawMessage `json:"response"`
}

type paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Fixture is one item of the /fixtures listing. Pointer fields are absent in malformed items.
// DecodeErr is set when the item did not decode; the other fields then hold whatever did.
type Fixture struct {
	DecodeErr error `json:"-"`
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID     int    `json:"id"`
		Season int    `json:"season"`
		Round  string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home *FixtureTeam `json:"home"`
		Away *FixtureTeam `json:"away"`
	} `json:"teams"`
	Score struct {
		Fulltime Goals `json:"fulltime"`
	} `json:"score"`
}

// FixtureTeam is a team reference inside a fixture or the /teams listing.
type FixtureTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Goals holds a goal count pair; nil means not played yet.
type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type teamItem struct {
	Team FixtureTeam `json:"team"`
}

// OddsItem is one item of the /odds listing. DecodeErr is set when the item did not decode.
type OddsItem struct {
	DecodeErr error `json:"-"`
	Fixture struct {
		ID int64 `json:"id"`
	} `json:"fixture"`
	Bookmakers []OddsBookmaker `json:"bookmakers"`
}

// OddsBookmaker is one bookmaker's markets for a fixture.
type OddsBookmaker struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Bets []OddsBet `json:"bets"`
}

// OddsBet is one market of a bookmaker.
type OddsBet struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Values []OddsValue `json:"values"`
}

// OddsValue is one outcome price. The provider sends odds as strings.
type OddsValue struct {
	Value string `json:"value"`
	Odd   string `json:"odd"`
}

// ── Client ──

// APIFootballClient reads fixtures, teams and odds from API-Football v3.
type APIFootballClient struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	client  *http.Client
}

// NewAPIFootballClient creates a new API-Football client.
func NewAPIFootballClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *APIFootballClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIFootballClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fixtures lists every fixture of a competition season.
func (c *APIFootballClient) Fixtures(ctx context.Context, competitionID, season int) ([]Fixture, error) {
	q := url.Values{}
	q.Set("league", strconv.Itoa(competitionID))
	q.Set("season", strconv.Itoa(season))

	env, err := c.get(ctx, "/fixtures", q)
	if err != nil {
		return nil, err
	}
	out, err := decodeItems(env.Response, func(f *Fixture, err error) bool {
		f.DecodeErr = err
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return out, nil
}

// Teams lists the teams taking part in a competition season.
func (c *APIFootballClient) Teams(ctx context.Context, competitionID, season int) ([]FixtureTeam, error) {
	q := url.Values{}
	q.Set("league", strconv.Itoa(competitionID))
	q.Set("season", strconv.Itoa(season))

	env, err := c.get(ctx, "/teams", q)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(env.Response, func(it *teamItem, err error) bool {
		c.logger.Warn("drop undecodable team", "team_id", it.Team.ID, "error", err)
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}
	out := make([]FixtureTeam, 0, len(items))
	for _, it := range items {
		out = append(out, it.Team)
	}
	return out, nil
}

// Odds lists the match-winner odds of one bookmaker for the fixtures played on date,
// following the provider's pagination.
func (c *APIFootballClient) Odds(ctx context.Context, competitionID, season, bookmakerID int, date time.Time) ([]OddsItem, error) {
	var out []OddsItem
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("league", strconv.Itoa(competitionID))
		q.Set("season", strconv.Itoa(season))
		q.Set("date", date.Format("2006-01-02"))
		q.Set("bookmaker", strconv.Itoa(bookmakerID))
		q.Set("bet", "1")
		if page > 1 {
			q.Set("page", strconv.Itoa(page))
		}

		env, err := c.get(ctx, "/odds", q)
		if err != nil {
			return nil, err
		}
		items, err := decodeItems(env.Response, func(it *OddsItem, err error) bool {
			it.DecodeErr = err
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("decode odds: %w", err)
		}
		out = append(out, items...)

		if env.Paging.Total <= page {
			return out, nil
		}
	}
}

// decodeItems decodes a response array one element at a time so a badly typed item does not
// lose the rest of the page. For an element that fails, bad receives the partially decoded value
// and reports whether to keep it.
func decodeItems[T any](raw json.RawMessage, bad func(*T, error) bool) ([]T, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil && !bad(&v, err) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ── HTTP helper ──

func (c *APIFootballClient) get(ctx context.Context, path string, q url.Values) (*envelope, error) {
	reqURL := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api-football %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	c.logger.Debug("api-football request", "path", path, "status", resp.StatusCode,
		"remaining", resp.Header.Get("x-ratelimit-requests-remaining"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("api-football %s returned %d: %s", path, resp.StatusCode, string(body[:min(200, len(body))]))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s envelope: %w", path, err)
	}
	// Quota and key problems come back as 200 with a non-empty errors field.
	if msg := providerErrors(env.Errors); msg != "" {
		return nil, fmt.Errorf("api-football %s: %s", path, msg)
	}
	if len(env.Response) == 0 || bytes.Equal(env.Response, []byte("null")) {
		return nil, fmt.Errorf("api-football %s: no response data", path)
	}
	return &env, nil
}

// providerErrors flattens the errors field, which is [] when empty and an object otherwise.
func providerErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		parts := make([]string, 0, len(obj))
		for k, v := range obj {
			parts = append(parts, k+": "+v)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
