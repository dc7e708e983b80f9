package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/joho/godotenv"
	"github.com/symptomcheck/diagnosis-api/config"
	"github.com/symptomcheck/diagnosis-api/data"
	"github.com/symptomcheck/diagnosis-api/datasetparser"
	"github.com/symptomcheck/diagnosis-api/diagnosis"
	"github.com/symptomcheck/diagnosis-api/handlers"
	"github.com/symptomcheck/diagnosis-api/health"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
	"github.com/symptomcheck/diagnosis-api/scheduler"
	"github.com/symptomcheck/diagnosis-api/server"
	"github.com/symptomcheck/diagnosis-api/validation"
)

// shutdownTimeout caps how long a termination signal waits for in-flight
// requests before the listener is forced closed.
const shutdownTimeout = 30 * time.Second

func main() {
	loadDotenv()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLoggerWithRetentionAndSize("logs", cfg.LogRetentionWeeks, cfg.MaxLogFileSize)

	// Shared model container, swapped atomically on every retrain
	container := data.NewDataContainer()
	container.SetServerStartTime(time.Now())

	parser := datasetparser.NewDatasetParser()
	retrainScheduler := scheduler.NewScheduler(container, parser, cfg.TrainingCSV, cfg.TreatmentsCSV, cfg.RetrainAt)

	// The initial load trains the model before the server accepts traffic
	if err := retrainScheduler.Start(); err != nil {
		logging.Error("Initial model training failed", "error", err)
		os.Exit(1)
	}
	defer retrainScheduler.Stop()

	srv := server.NewServer(cfg, buildHandler(container, cfg))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(srv)
}

// loadDotenv reads .env from the working directory, falling back to the
// directory the binary lives in so service units need no WorkingDirectory
// tweak.
func loadDotenv() {
	if godotenv.Load() == nil {
		return
	}
	if ex, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
	}
}

// buildHandler assembles the handler dependency graph around the shared
// container.
func buildHandler(container *data.DataContainer, cfg *config.Config) interfaces.HTTPHandler {
	validator := validation.NewDataValidator()
	diagnoser := diagnosis.New(container)
	healthChecker := health.NewHealthChecker(container, cfg.RetrainAt)
	return handlers.NewHTTPHandler(container, validator, diagnoser, healthChecker)
}

// waitForShutdown blocks until SIGINT or SIGTERM, then drains the server.
func waitForShutdown(srv *server.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
}
