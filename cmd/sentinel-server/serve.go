package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/storewatch/sentinel/internal/alert"
	"github.com/storewatch/sentinel/internal/api"
	"github.com/storewatch/sentinel/internal/async"
	"github.com/storewatch/sentinel/internal/bootstrap"
	"github.com/storewatch/sentinel/internal/config"
	"github.com/storewatch/sentinel/internal/emailconfig"
	"github.com/storewatch/sentinel/internal/job"
	"github.com/storewatch/sentinel/internal/liveness"
	"github.com/storewatch/sentinel/internal/migrations"
	"github.com/storewatch/sentinel/internal/repository"
	"github.com/storewatch/sentinel/internal/repository/sqlite"
	"github.com/storewatch/sentinel/internal/support/logging"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sentinel ingestion and dashboard HTTP server",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Component: "sentinel-server",
	})

	var db *sql.DB
	openBackoff := backoff.NewExponentialBackOff()
	openBackoff.InitialInterval = time.Second
	openBackoff.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		var openErr error
		db, openErr = bootstrap.OpenSQLite(cfg.DB.Path)
		if openErr != nil {
			logger.Warn("database open failed, retrying", "error", openErr)
		}
		return openErr
	}, openBackoff)

	var store repository.Store
	if err != nil {
		if !cfg.DB.AllowMemoryOnlyBoot {
			return fmt.Errorf("open database: %w", err)
		}
		logger.Error("database unavailable, continuing with memory-only registry", "error", err)
		store = repository.Unavailable()
	} else {
		defer db.Close()
		if err := migrations.Up(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		store = sqlite.NewStore(db)
	}

	infra := bootstrap.BuildInfrastructure(bootstrap.SMTPSettings{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Encryption:  cfg.SMTP.Encryption,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
	}, logger)

	recipients, err := emailconfig.Load(cfg.Email.ConfigPath)
	if err != nil {
		return fmt.Errorf("load email recipients: %w", err)
	}

	threshold := time.Duration(cfg.Alert.ThresholdMinutes) * time.Minute
	registry := liveness.NewRegistry(threshold, cfg.Alert.Epsilon, time.Duration(cfg.Alert.StartupCooldownMinutes)*time.Minute)

	cooldown := alert.NewCooldown(
		time.Duration(cfg.Alert.OfflineCooldownMinutes)*time.Minute,
		time.Duration(cfg.Alert.RecoveryCooldownMinutes)*time.Minute,
		time.Duration(cfg.Alert.StartupCooldownMinutes)*time.Minute,
	)

	notifQueue := async.NewNotificationQueue()
	queueNotifier := async.NewQueueNotifier(notifQueue)
	worker := async.NewNotificationWorker(notifQueue, infra.Notifier, logger, 5*time.Second)
	worker.Start()
	defer worker.Stop()

	dispatcher := alert.NewDispatcher(cooldown, store.Alerts(), recipients, queueNotifier, logger)

	sweeper := job.NewHealthSweeperJob(registry, dispatcher, store.Stores(), logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sweeper.Hydrate(bootCtx); err != nil {
		logger.Warn("boot hydration failed", "error", err)
	}
	bootCancel()

	scheduler := job.NewScheduler(logger)
	interval := cfg.Alert.HealthCheckIntervalMins
	if interval <= 0 {
		interval = 2
	}
	if _, err := scheduler.Register(fmt.Sprintf("@every %dm", interval), sweeper); err != nil {
		return fmt.Errorf("register health sweeper: %w", err)
	}
	scheduler.Start()

	router := api.NewRouter(logger, api.Dependencies{
		Registry:   registry,
		Dispatcher: dispatcher,
		Store:      store,
		Recipients: recipients,
		Sweeper:    sweeper,
		Scheduler:  scheduler,
		Cache:      infra.Cache,
		StartedAt:  time.Now(),
	}, cfg.Metrics, cfg.CORS)

	httpServer := bootstrap.NewHTTPServer(cfg.HTTP.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("sentinel server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	<-scheduler.Stop().Done()
	worker.Stop()

	logger.Info("sentinel server stopped")
	return nil
}

// runSweepOnce opens the database, runs one health-sweep pass, and exits;
// useful for a cron-driven deployment that does not keep the scheduler
// running in-process.
func runSweepOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{Level: cfg.Log.SlogLevel(), Format: cfg.Log.Format, Component: "sentinel-server-sweep"})

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := sqlite.NewStore(db)
	recipients, err := emailconfig.Load(cfg.Email.ConfigPath)
	if err != nil {
		return fmt.Errorf("load email recipients: %w", err)
	}

	threshold := time.Duration(cfg.Alert.ThresholdMinutes) * time.Minute
	registry := liveness.NewRegistry(threshold, cfg.Alert.Epsilon, time.Duration(cfg.Alert.StartupCooldownMinutes)*time.Minute)
	cooldown := alert.NewCooldown(
		time.Duration(cfg.Alert.OfflineCooldownMinutes)*time.Minute,
		time.Duration(cfg.Alert.RecoveryCooldownMinutes)*time.Minute,
		time.Duration(cfg.Alert.StartupCooldownMinutes)*time.Minute,
	)
	infra := bootstrap.BuildInfrastructure(bootstrap.SMTPSettings{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Encryption:  cfg.SMTP.Encryption,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
	}, logger)

	dispatcher := alert.NewDispatcher(cooldown, store.Alerts(), recipients, infra.Notifier, logger)
	sweeper := job.NewHealthSweeperJob(registry, dispatcher, store.Stores(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := sweeper.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}
	return sweeper.Run(ctx)
}
