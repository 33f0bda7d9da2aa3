package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harwell/rollwin/config"
	"github.com/harwell/rollwin/logging"
	"github.com/harwell/rollwin/rolling"
	"github.com/harwell/rollwin/scheduler"
	"github.com/harwell/rollwin/server"
	"github.com/harwell/rollwin/sinks"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogDir, cfg.LogRetentionWeeks)

	durations, err := sinks.NewDurationHistogram(nil, "rollwin_requests")
	if err != nil {
		logging.Error("Failed to register duration histogram", "error", err)
		os.Exit(1)
	}
	gauges, err := sinks.NewRollupGauges(nil)
	if err != nil {
		logging.Error("Failed to register rollup gauges", "error", err)
		os.Exit(1)
	}

	record, err := rolling.NewRequestRecord("requests", cfg.TickInterval, nil, durations, sinks.Fanout{
		sinks.NewLogRollup(nil),
		gauges,
	})
	if err != nil {
		logging.Error("Failed to create request record", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler()
	if err := sched.Register(cfg.TickInterval, record); err != nil {
		logging.Error("Failed to register record ticker", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.NewServer(cfg, record)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logging.Error("Server error", "error", err)
		os.Exit(1)
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
}
