// Package main is the entry point for the conscience engine service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"conscience-engine/internal/config"
	"conscience-engine/internal/engine"
	"conscience-engine/internal/handler"
	"conscience-engine/internal/pkg/db"
	"conscience-engine/internal/pkg/lock"
	"conscience-engine/internal/repository"
	"conscience-engine/internal/scenario"
	"conscience-engine/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.Log.ZerologLevel())

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("timezone", cfg.Engine.Timezone).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  service.Store
		health func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := db.Migrate(ctx, dbPool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		store = repository.NewPostgresStore(dbPool.Pool, cfg.Engine.TxRetries)
		health = dbPool.HealthCheck
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store, state is lost on restart")
		store = repository.NewMemoryStore()
	}

	src, err := scenario.OpenSource(cfg.Scenarios.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Scenarios.Path).Msg("Failed to open scenarios")
	}
	catalog, err := scenario.NewCatalog(src, cfg.Scenarios.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scenario catalog")
	}
	if err := catalog.LoadAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load scenarios")
	}

	loc, err := cfg.Engine.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve engine timezone")
	}
	rules := engine.NewRules(loc, cfg.Engine.ChoiceBaseXP)

	log.Info().
		Int("scenarios", catalog.Count()).
		Int("badges", rules.Badges.Len()).
		Int("quest_templates", len(rules.Quests)).
		Msg("Rules ready")

	svc := service.NewEngineService(store, catalog, rules, lock.NewUserLock(), service.Options{
		LockTimeout: cfg.Engine.LockTimeout,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.New(svc, health).Router(cfg.Server.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}
