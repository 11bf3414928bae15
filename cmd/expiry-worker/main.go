package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/repository/postgres"
	"github.com/izerwaren/b2bportal/internal/service"
	"github.com/izerwaren/b2bportal/internal/worker"
	applog "github.com/izerwaren/b2bportal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	repos := postgres.NewRepositories(db, logger)

	rfqs := service.NewRFQService(cfg.RFQ, repos, logger, time.Now)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    worker.NewLogger(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err), zap.String("host_port", cfg.Temporal.HostPort))
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal, &worker.ExpiryActivities{Expirer: rfqs, Logger: logger})
	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start worker", zap.Error(err))
	}
	defer w.Stop()

	if err := worker.StartSweep(context.Background(), c, cfg.Temporal, logger); err != nil {
		logger.Fatal("Failed to schedule expiry sweep", zap.Error(err))
	}

	<-sdkworker.InterruptCh()
	logger.Info("Expiry worker stopping")
}
