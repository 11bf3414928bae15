package worker

import (
	"context"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/config"
)

// New creates a worker on the expiry task queue with the sweep workflow and activity registered
func New(c client.Client, cfg config.TemporalConfig, activities *ExpiryActivities) worker.Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		Identity:                           "rfq-expiry-worker-" + hostname(),
		MaxConcurrentActivityExecutionSize: 4,
	})
	w.RegisterWorkflow(ExpirySweepWorkflow)
	w.RegisterActivity(activities)
	return w
}

// StartSweep starts the cron sweep workflow. When the schedule is already running,
// the existing run is returned.
func StartSweep(ctx context.Context, c client.Client, cfg config.TemporalConfig, logger *zap.Logger) error {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           SweepWorkflowID,
		TaskQueue:    cfg.TaskQueue,
		CronSchedule: cfg.SweepCron,
	}, ExpirySweepWorkflow)
	if err != nil {
		logger.Error("Failed to start expiry sweep", zap.Error(err))
		return err
	}

	logger.Info("Expiry sweep scheduled",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("cron", cfg.SweepCron),
	)
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
