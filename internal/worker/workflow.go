// Package worker runs the periodic RFQ expiry sweep on Temporal.
package worker

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SweepWorkflowID is fixed so only one cron schedule exists per namespace
const SweepWorkflowID = "rfq-expiry-sweep"

// ExpirySweepWorkflow expires overdue RFQs. It is started with a cron schedule, one run per tick.
func ExpirySweepWorkflow(ctx workflow.Context) (*SweepResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("Expiry sweep started")

	var activities *ExpiryActivities
	var result SweepResult
	if err := workflow.ExecuteActivity(ctx, activities.ExpireOverdueRFQs).Get(ctx, &result); err != nil {
		logger.Error("Expiry sweep activity failed", "Error", err)
		return nil, err
	}

	logger.Info("Expiry sweep completed", "Expired", result.Expired)
	return &result, nil
}
