package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/nordfolio-backend/internal/api"
	"github.com/kjannette/nordfolio-backend/internal/config"
	"github.com/kjannette/nordfolio-backend/internal/db"
	"github.com/kjannette/nordfolio-backend/internal/logging"
	"github.com/kjannette/nordfolio-backend/internal/pricing"
	"github.com/kjannette/nordfolio-backend/internal/realtime"
	"github.com/kjannette/nordfolio-backend/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║      NORDFOLIO Portfolio API v0.1    ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	dbLog := logging.Component(log, "db")

	// Database
	dbLog.Info().Str("host", cfg.DBHost).Int("port", cfg.DBPort).Str("name", cfg.DBName).Msg("connecting")
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		dbLog.Fatal().Err(err).Msg("connection failed")
	}
	defer func() {
		pool.Close()
		dbLog.Info().Msg("connection pool closed")
	}()

	if err := db.TestConnection(pool, dbLog); err != nil {
		dbLog.Fatal().Err(err).Msg("test query failed")
	}

	if cfg.DBAutoMigrate {
		if err := db.ApplySchema(context.Background(), pool); err != nil {
			dbLog.Fatal().Err(err).Msg("schema migration failed")
		}
		dbLog.Info().Msg("schema applied")
	}

	store := repository.NewStore(pool)
	pricer := pricing.NewFromConfig(cfg, log)

	rtLog := logging.Component(log, "realtime")
	refresher := realtime.NewRefresher(store, pricer, realtime.RefresherConfig{
		StaleWindow: cfg.StaleWindow(),
	}, rtLog)
	stream := realtime.NewStream(refresher, realtime.StreamConfig{
		Interval: cfg.RefreshInterval(),
	}, rtLog)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Deps{
		Portfolios: store.Portfolios,
		Assets:     store.Assets,
		History:    store.Prices,
		Quotes:     store,
		Pricer:     pricer,
		Stream:     stream,
		DB:         pool,
		Log:        logging.Component(log, "api"),
	}, cfg.APIPort, cfg.CORSAllowOrigin)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server error")
		}
	}()

	log.Info().Msg("all services started")

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API shutdown error")
	}
	log.Info().Msg("shutdown complete")
}
