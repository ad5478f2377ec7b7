package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gohye/tradematch/tradematch"
	"github.com/gohye/tradematch/tradematch/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting trade matching engine",
		slog.String("version", version),
		slog.String("commit", commit))

	refreshUser := flag.String("refresh-user", "", "recompute matches for one user and exit")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := tradematch.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	setupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	setupStart := time.Now()
	svc := tradematch.New(*cfg, version, commit)
	if err := svc.Setup(setupCtx); err != nil {
		slog.Error("Service setup failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(setupStart)))
		os.Exit(-1)
	}
	defer svc.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(setupStart)))

	if *refreshUser != "" {
		refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer refreshCancel()

		if err := svc.Engine.RefreshMatches(refreshCtx, *refreshUser); err != nil {
			slog.Error("Match refresh failed",
				slog.String("user_id", *refreshUser),
				slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Match refresh complete", slog.String("user_id", *refreshUser))
		return
	}

	svc.Refresher.Start(context.Background())

	slog.Info("Trade matching engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")
}
