package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer expires every overdue RFQ and reports how many it moved
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// SweepResult is what one expiry sweep did
type SweepResult struct {
	Expired   int
	StartedAt time.Time
	Duration  time.Duration
}

// ExpiryActivities holds the dependencies of the expiry sweep activity
type ExpiryActivities struct {
	Expirer Expirer
	Logger  *zap.Logger
}

// ExpireOverdueRFQs runs one sweep
func (a *ExpiryActivities) ExpireOverdueRFQs(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	expired, err := a.Expirer.ExpireOverdue(ctx)
	if err != nil {
		a.Logger.Error("Failed to expire overdue RFQs", zap.Error(err), zap.Int("expired", expired))
		return nil, err
	}

	result := &SweepResult{Expired: expired, StartedAt: start, Duration: time.Since(start)}
	a.Logger.Info("Expiry sweep finished",
		zap.Int("expired", expired),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
