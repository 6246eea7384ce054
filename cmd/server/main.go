// Package main is the entry point for the portfoy server. It tracks
// portfolio positions from a trade ledger, values them against live quotes
// in base currency, and records the value history for trend charts.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ozank/portfoy/internal/config"
	"github.com/ozank/portfoy/internal/database"
	"github.com/ozank/portfoy/internal/events"
	"github.com/ozank/portfoy/internal/modules/catalog"
	"github.com/ozank/portfoy/internal/modules/ledger"
	"github.com/ozank/portfoy/internal/modules/pricing"
	"github.com/ozank/portfoy/internal/modules/valuation"
	"github.com/ozank/portfoy/internal/reliability"
	"github.com/ozank/portfoy/internal/scheduler"
	"github.com/ozank/portfoy/internal/server"
	"github.com/ozank/portfoy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting portfoy")

	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "portfoy",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	bus := events.NewBus(log)

	// Repositories
	assetRepo := catalog.NewAssetRepository(db.Conn(), log)
	tradeRepo := ledger.NewTradeRepository(db.Conn(), log)
	historyRepo := pricing.NewHistoryRepository(db.Conn(), log)
	snapshotRepo := valuation.NewSnapshotRepository(db.Conn(), log)

	// Services
	ledgerService := ledger.NewService(tradeRepo, assetRepo, bus, log)
	yahooClient := pricing.NewYahooClient(cfg.QuoteTimeout, log)
	refreshService := pricing.NewRefreshService(yahooClient, assetRepo, ledgerService, historyRepo, bus, log)
	fx := valuation.NewFXTable(cfg.USDRate)
	engine := valuation.NewEngine(ledgerService, historyRepo, snapshotRepo, fx, bus, log)
	trendService := valuation.NewTrendService(snapshotRepo, log)

	// Background jobs
	sched := scheduler.New(log)
	refreshSchedule := fmt.Sprintf("@every %ds", int(cfg.RefreshInterval.Seconds()))
	refreshJob := scheduler.NewAutoRefreshJob(refreshService, tradeRepo, cfg.RefreshInterval, log)
	if err := sched.AddJob(refreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}

	if cfg.Backup.Enabled() {
		store, err := reliability.NewObjectStore(context.Background(), reliability.ObjectStoreConfig{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup object store")
		}

		backupService := reliability.NewBackupService(db, store, cfg.DataDir, log)
		backupJob := scheduler.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backups disabled, no bucket or credentials configured")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Modules: []server.RouteRegistrar{
			catalog.NewHandler(assetRepo, log),
			ledger.NewHandler(ledgerService, log),
			pricing.NewHandler(refreshService, historyRepo, assetRepo, log),
			valuation.NewHandler(engine, trendService, snapshotRepo, log),
		},
		SystemHandler: server.NewSystemHandlers(cfg.DatabasePath(), log),
		EventsStream:  server.NewEventsStreamHandler(bus, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
