package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matchday/platform/internal/auth"
	"github.com/matchday/platform/internal/domain"
	"github.com/matchday/platform/internal/service"
)

// BettingService is the part of service.BettingService exposed over HTTP.
type BettingService interface {
	SubmitBet(ctx context.Context, username string, input service.SubmitBetInput) (*domain.Bet, error)
	RedeemToken(ctx context.Context, token string) (*domain.Confirmation, error)
	GetLeaderboard(ctx context.Context, leagueID string) ([]domain.ScoreRecord, error)
	GetUpcomingMatches(ctx context.Context, username string) ([]domain.MatchView, error)
}

// BettingHandler serves bets, token redemption, leaderboards and upcoming matches.
type BettingHandler struct {
	svc    BettingService
	logger *slog.Logger
}

// NewBettingHandler creates a BettingHandler.
func NewBettingHandler(svc BettingService, logger *slog.Logger) *BettingHandler {
	return &BettingHandler{svc: svc, logger: logger}
}

type submitBetRequest struct {
	FixtureID  int64  `json:"id_fixture"`
	Prediction string `json:"prediction"`
	Bet        string `json:"bet"`
}

// SubmitBet handles POST /bets.
func (h *BettingHandler) SubmitBet(w http.ResponseWriter, r *http.Request) {
	var req submitBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	prediction := req.Prediction
	if prediction == "" {
		prediction = req.Bet
	}

	bet, err := h.svc.SubmitBet(r.Context(), auth.UsernameFromContext(r.Context()), service.SubmitBetInput{
		FixtureID:  req.FixtureID,
		Prediction: prediction,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, bet)
}

// Leaderboard handles GET /leagues/{league}/leaderboard.
func (h *BettingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.GetLeaderboard(r.Context(), chi.URLParam(r, "league"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

// UpcomingMatches handles GET /matches/upcoming.
func (h *BettingHandler) UpcomingMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.GetUpcomingMatches(r.Context(), auth.UsernameFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, matches)
}

var confirmationPage = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{- if .Confirmation}}
<p>{{.Confirmation.Username}}, your bet on <b>{{.Confirmation.HomeTeam}} - {{.Confirmation.AwayTeam}}</b> is now <b>{{.Pick}}</b>.</p>
{{- else}}
<p>{{.Message}}</p>
{{- end}}
</body></html>`))

type confirmationView struct {
	Title        string
	Message      string
	Pick         string
	Confirmation *domain.Confirmation
}

// RedeemToken handles GET /bet/{token}, the link sent in the daily digest.
// The response is a small HTML page rather than JSON.
func (h *BettingHandler) RedeemToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	conf, err := h.svc.RedeemToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		status := http.StatusInternalServerError
		view := confirmationView{Title: "Something went wrong", Message: "Please try again later."}
		switch {
		case domain.HasCode(err, domain.CodeNotFound):
			status = http.StatusNotFound
			view = confirmationView{Title: "Link not valid", Message: "This link has expired or does not exist."}
		case domain.HasCode(err, domain.CodeKickoffPassed):
			status = http.StatusForbidden
			view = confirmationView{Title: "Betting closed", Message: "This match has already started."}
		}
		h.renderPage(w, r, status, view)
		return
	}

	h.renderPage(w, r, http.StatusOK, confirmationView{
		Title:        "Bet saved",
		Pick:         conf.Outcome.Short(),
		Confirmation: conf,
	})
}

func (h *BettingHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, view confirmationView) {
	w.WriteHeader(status)
	if err := confirmationPage.Execute(w, view); err != nil {
		h.logger.Error("render confirmation page failed",
			"request_id", GetRequestID(r.Context()),
			"status", status,
			"error", err,
		)
	}
}
