package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchan-dev/mediable/backend/internal/router"
	"github.com/itchan-dev/mediable/backend/internal/setup"
	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		logger.Log.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Storage.Cleanup()

	server := &http.Server{
		Addr:              cfg.Public.HttpAddr,
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var background []func(context.Context) error
	if interval := cfg.Public.GC.Interval.Std(); interval > 0 {
		background = append(background, func(ctx context.Context) error {
			return deps.GC.Run(ctx, interval)
		})
	}

	logger.Log.Info("server started", "addr", server.Addr)
	if err := setup.Serve(ctx, server, deps.Pool, cfg.ShutdownTimeout(), background...); err != nil {
		logger.Log.Error("server stopped with error", "error", err)
		deps.Storage.Cleanup()
		os.Exit(1)
	}
	logger.Log.Info("server stopped")
}
