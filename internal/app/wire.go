package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matchday/platform/internal/auth"
	"github.com/matchday/platform/internal/guard"
	"github.com/matchday/platform/internal/handler"
	"github.com/matchday/platform/internal/infra"
	"github.com/matchday/platform/internal/repository"
	"github.com/matchday/platform/internal/service"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool       *pgxpool.Pool
	JWTMgr     *auth.JWTManager
	Logger     *slog.Logger
	CORSOrigin string
	// TokenRateLimit caps digest-link requests per client IP and minute. Zero disables it.
	TokenRateLimit int
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	store := repository.NewStore(deps.Pool)
	bettingSvc := service.NewBettingService(store, deps.Logger)
	ping := func(ctx context.Context) error {
		return infra.HealthCheck(ctx, deps.Pool)
	}

	return Routes(RoutesDeps{
		Betting: handler.NewBettingHandler(bettingSvc, deps.Logger),
		Ping:    ping,
		JWTMgr:  deps.JWTMgr,
		Logger:  deps.Logger,
		CORS:    deps.CORSOrigin,
		Limiter: tokenLimiter(deps.TokenRateLimit),
	})
}

func tokenLimiter(perMinute int) *guard.RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return guard.NewRateLimiter(perMinute, time.Minute)
}

// RoutesDeps are the already-built pieces Routes mounts.
type RoutesDeps struct {
	Betting *handler.BettingHandler
	Ping    handler.Pinger
	JWTMgr  *auth.JWTManager
	Logger  *slog.Logger
	CORS    string
	Limiter *guard.RateLimiter
}

// Routes mounts the public and authenticated endpoints.
func Routes(deps RoutesDeps) chi.Router {
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(deps.Logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(deps.Logger))
	r.Use(handler.CORS(deps.CORS))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Ping))

	// Digest links and public leaderboards (no auth)
	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(handler.RateLimit(deps.Limiter))
		}
		r.Get("/bet/{token}", deps.Betting.RedeemToken)
	})
	r.Get("/leagues/{league}/leaderboard", deps.Betting.Leaderboard)

	// User-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWTMgr))

		r.Post("/bets", deps.Betting.SubmitBet)
		r.Get("/matches/upcoming", deps.Betting.UpcomingMatches)

		// Legacy paths still used by the old web client.
		r.Post("/submitbet", deps.Betting.SubmitBet)
		r.Get("/nextmatches", deps.Betting.UpcomingMatches)
	})

	return r
}
