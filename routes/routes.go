package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/handlers"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/middleware"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/models"
)

type Handlers struct {
	Match      *handlers.MatchHandler
	Standings  *handlers.StandingsHandler
	Tournament *handlers.TournamentHandler
	WebSocket  *handlers.WebSocketHandler
	Health     *handlers.HealthHandler
	Metrics    http.Handler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}

	router.Route("/ws", func(r chi.Router) {
		r.Get("/matches/{matchID}", h.WebSocket.ServeMatch)
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
	})

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.GetMatch)

		// Счёт ведут секретари матча.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(models.RoleScorekeeper, models.RoleOrganizer, models.RoleAdmin))

			r.Post("/start", h.Match.StartMatch)
			r.Post("/points", h.Match.ScorePoint)
			r.Patch("/status", h.Match.UpdateMatchStatus)
		})
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/bracket", h.Tournament.GetBracket)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))

			r.Post("/schedule", h.Tournament.GenerateSchedule)
			r.Post("/bracket", h.Tournament.GenerateBracket)
		})
	})

	router.Route("/seasons/{seasonID}/standings", func(r chi.Router) {
		r.Get("/", h.Standings.GetStandings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/recalculate", h.Standings.RecalculateRanks)
		})
	})
}
