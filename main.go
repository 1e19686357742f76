package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clipstitch/config"
	"clipstitch/destinations"
	"clipstitch/fetch"
	"clipstitch/ffmpeg"
	"clipstitch/job"
	"clipstitch/logger"
	"clipstitch/records"
	"clipstitch/routes"
)

const recordRetention = 30 * 24 * time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("Could not create data directory %s: %v", cfg.DataDir, err)
	}
	if err := os.MkdirAll(cfg.ServeDir, 0o755); err != nil {
		logger.Fatalf("Could not create serve directory %s: %v", cfg.ServeDir, err)
	}

	recs, err := records.Open(cfg.OutcomeDBPath("completed"), cfg.OutcomeDBPath("failed"))
	if err != nil {
		logger.Fatalf("Could not open record stores: %v", err)
	}
	defer recs.Close()

	dests, err := destinations.Open(cfg.OutcomeDBPath("destinations"))
	if err != nil {
		logger.Fatalf("Could not open destination registry: %v", err)
	}
	defer dests.Close()

	engine := ffmpeg.New()
	if err := engine.Available(); err != nil {
		// The process still serves health/metrics; concat jobs will fail
		// until the binaries appear on PATH.
		logger.Warnf("Media toolchain unavailable: %v", err)
	}

	orch := job.New(cfg, engine, fetch.New(cfg), dests, recs)
	app := routes.NewApp(cfg, orch, recs, dests)

	go cleanupRoutine(recs)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Infof("Listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// cleanupRoutine prunes old outcome records once a day.
func cleanupRoutine(recs *records.Store) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := recs.CleanupOldRecords(recordRetention); err != nil {
			logger.Errorf("Record cleanup failed: %v", err)
		} else {
			logger.Infof("Record cleanup completed")
		}
	}
}
