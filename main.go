package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcastellr/ballotbox-be/internal/api"
	"github.com/jcastellr/ballotbox-be/internal/auth"
	"github.com/jcastellr/ballotbox-be/internal/config"
	"github.com/jcastellr/ballotbox-be/internal/database"
	"github.com/jcastellr/ballotbox-be/internal/logger"
	"github.com/jcastellr/ballotbox-be/internal/monitoring"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/jcastellr/ballotbox-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Token signing key comes from config so secrets loaded via .env work.
	auth.Init(cfg.JWTSecret)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub for live results
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	accountService := services.NewAccountService(db)
	voteService := services.NewVoteService(db)
	statsService := services.NewStatsService(db)

	// Bootstrap the first administrator; the registration endpoint only
	// accepts admin roles from an existing admin.
	if cfg.AdminEmail != "" {
		if err := accountService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminSecret); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap administrator account")
		}
	}

	// Set up and run the live statistics broadcaster
	broadcaster := monitoring.NewStatsBroadcaster(statsService, hub, cfg.StatsInterval)
	go broadcaster.Run()

	// Set up and run the background integrity auditor
	auditor, err := monitoring.NewAuditor(statsService, hub, cfg.AuditSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize integrity auditor")
	}
	go auditor.Run()

	// Set up router
	router := api.NewRouter(db, hub, accountService, voteService, statsService, broadcaster, cfg.AllowedOrigin)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	broadcaster.Stop()
	auditor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
