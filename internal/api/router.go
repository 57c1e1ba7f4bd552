package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jcastellr/ballotbox-be/internal/api/handlers"
	"github.com/jcastellr/ballotbox-be/internal/auth"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/jcastellr/ballotbox-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	db *sql.DB,
	hub *websocket.Hub,
	accountService services.AccountServiceProvider,
	voteService services.VoteServiceProvider,
	statsService services.StatsServiceProvider,
	notifier handlers.Notifier,
	allowedOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for the React frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	authHandler := handlers.NewAuthHandler(accountService)
	voteHandler := handlers.NewVoteHandler(voteService, notifier)
	statsHandler := handlers.NewStatsHandler(statsService)
	healthHandler := handlers.NewHealthHandler(db)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		// Live results dashboard
		r.Get("/ws", wsHandler.Serve)

		// Public endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.With(auth.OptionalJWT()).Post("/accounts", accountHandler.Create)
		r.Get("/statistics", statsHandler.Get)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware())

			r.Post("/votes", voteHandler.Create)
			r.Get("/votes", voteHandler.GetAll)
			r.Get("/votes/{id}", voteHandler.Get)

			r.Get("/accounts", accountHandler.GetAll)
			r.Get("/accounts/{id}", accountHandler.Get)

			// Administrative endpoints
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Put("/accounts/{id}", accountHandler.Update)
				r.Delete("/accounts/{id}", accountHandler.Delete)
				r.Delete("/votes/{id}", voteHandler.Delete)
				r.Get("/integrity", statsHandler.GetIntegrity)
			})
		})
	})

	return r
}
