package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap"
)

type fakeExpirer struct {
	expired int
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context) (int, error) {
	f.calls++
	return f.expired, f.err
}

type ExpirySweepTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestExpirySweepTestSuite(t *testing.T) {
	suite.Run(t, new(ExpirySweepTestSuite))
}

func (s *ExpirySweepTestSuite) TestSweepReportsExpiredCount() {
	env := s.NewTestWorkflowEnvironment()
	expirer := &fakeExpirer{expired: 3}
	env.RegisterActivity(&ExpiryActivities{Expirer: expirer, Logger: zap.NewNop()})

	env.ExecuteWorkflow(ExpirySweepWorkflow)

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())
	var result SweepResult
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal(3, result.Expired)
	s.Equal(1, expirer.calls)
}

func (s *ExpirySweepTestSuite) TestSweepRetriesThenFails() {
	env := s.NewTestWorkflowEnvironment()
	expirer := &fakeExpirer{err: fmt.Errorf("database unavailable")}
	env.RegisterActivity(&ExpiryActivities{Expirer: expirer, Logger: zap.NewNop()})

	env.ExecuteWorkflow(ExpirySweepWorkflow)

	s.True(env.IsWorkflowCompleted())
	s.Error(env.GetWorkflowError())
	s.Equal(3, expirer.calls)
}

func TestExpireOverdueRFQsActivity(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(&ExpiryActivities{Expirer: &fakeExpirer{expired: 2}, Logger: zap.NewNop()})

	var a *ExpiryActivities
	value, err := env.ExecuteActivity(a.ExpireOverdueRFQs)
	require.NoError(t, err)

	var result SweepResult
	require.NoError(t, value.Get(&result))
	assert.Equal(t, 2, result.Expired)
}
