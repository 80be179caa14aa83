package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/storewatch/sentinel/internal/client/buffer"
	"github.com/storewatch/sentinel/internal/client/config"
	"github.com/storewatch/sentinel/internal/client/shipper"
	"github.com/storewatch/sentinel/internal/client/telemetry"
)

var (
	configFile string
	showVer    bool
)

func init() {
	flag.StringVar(&configFile, "config", "config.yml", "Path to configuration file")
	flag.BoolVar(&showVer, "version", false, "Show version")
	flag.Parse()
}

func main() {
	if showVer {
		fmt.Println("StoreWatch Sentinel Agent v0.1.0")
		return
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("failed to load config", "path", configFile, "error", err)
		os.Exit(1)
	}

	collector := telemetry.NewCollector(cfg.StoreID, cfg.StoreName, cfg.NetworkProbe.URLs, cfg.NetworkProbe.Interval, nil)
	buf := buffer.Open(cfg.Buffer.Path, logger)
	ship := shipper.New(cfg.MonitoringServerURL, cfg.HeartbeatInterval, collector, buf, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	logger.Info("sentinel agent starting", "store_id", cfg.StoreID, "server", cfg.MonitoringServerURL)
	if err := ship.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("shipper exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("sentinel agent stopped")
}
