package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"darkroom/internal/config"
	"darkroom/internal/daemon"
	"darkroom/internal/errsink"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	runErr := d.Run(ctx)
	switch {
	case runErr == nil:
	case pipeline.IsStopped(runErr):
		logger.Warn("darkroomd stopped on error as configured")
	case errors.Is(runErr, errsink.ErrSinkFailure):
		logger.Error("darkroomd aborting, quarantine is not writable", logging.Error(runErr))
		_ = d.Close()
		os.Exit(1)
	default:
		logger.Error("darkroomd exited with error", logging.Error(runErr))
		_ = d.Close()
		os.Exit(1)
	}
	logger.Info("darkroomd shut down")
}
