package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

func TestAutoAssign_SkipsFullRep(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	_, a := f.rep(t, "a", intPtr(5))
	b, bp := f.rep(t, "b", intPtr(10))

	for i := 0; i < 5; i++ {
		_, err := f.svc.Assignment.Claim(f.ctx, a, f.submit(t, customer, domain.RfqPriorityNormal, 1).ID)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Assignment.Claim(f.ctx, bp, f.submit(t, customer, domain.RfqPriorityNormal, 1).ID)
		require.NoError(t, err)
	}

	request := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	result, err := f.svc.Assignment.AutoAssign(f.ctx, f.admin(), []uuid.UUID{request.ID})
	require.NoError(t, err)
	require.Equal(t, 1, result.Assigned)
	require.NotNil(t, result.Items[0].AssignedRepID)
	assert.Equal(t, b.ID, *result.Items[0].AssignedRepID)
	assert.Equal(t, domain.RfqStatusInReview, result.Items[0].Status)

	count, err := f.repos.RFQ.CountActiveByRep(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAutoAssign_QueueOrder(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	rep, _ := f.rep(t, "solo", intPtr(1))

	low := f.submit(t, customer, domain.RfqPriorityLow, 1)
	f.clock.Advance(time.Hour)
	urgent := f.submit(t, customer, domain.RfqPriorityUrgent, 1)

	result, err := f.svc.Assignment.AutoAssign(f.ctx, f.admin(), nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, urgent.ID, result.Items[0].RfqID)
	assert.Equal(t, AssignmentAssigned, result.Items[0].Outcome)
	assert.Equal(t, rep.ID, *result.Items[0].AssignedRepID)
	assert.Equal(t, low.ID, result.Items[1].RfqID)
	assert.Equal(t, AssignmentUnassignable, result.Items[1].Outcome)
	assert.Equal(t, 1, result.Unassignable)
}

func TestAutoAssign_RespectsTerritory(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "SW")
	f.rep(t, "north", nil, "NE")

	request := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	result, err := f.svc.Assignment.AutoAssign(f.ctx, f.admin(), []uuid.UUID{request.ID})
	require.NoError(t, err)
	assert.Equal(t, AssignmentUnassignable, result.Items[0].Outcome)

	stored, err := f.repos.RFQ.GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusPending, stored.Status)
	assert.Nil(t, stored.AssignedRepID)
}

func TestAutoAssign_ConcurrentRunsNeverExceedCapacity(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	rep, _ := f.rep(t, "busy", intPtr(3))

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = f.submit(t, customer, domain.RfqPriorityNormal, 1).ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.Assignment.AutoAssign(f.ctx, f.admin(), ids)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			assigned += result.Assigned
			mu.Unlock()
		}()
	}
	wg.Wait()

	count, err := f.repos.RFQ.CountActiveByRep(f.ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, assigned)
}

func TestBulkAssign_ReportsEachRFQ(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	target, _ := f.rep(t, "target", intPtr(2))
	_, other := f.rep(t, "other", nil)

	taken := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	_, err := f.svc.Assignment.Claim(f.ctx, other, taken.ID)
	require.NoError(t, err)
	r1 := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	r2 := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	r3 := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	result, err := f.svc.Assignment.BulkAssign(f.ctx, f.admin(), []uuid.UUID{taken.ID, r1.ID, r2.ID, r3.ID, r1.ID}, target.ID)
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	assert.Equal(t, AssignmentSkipped, result.Items[0].Outcome)
	assert.Equal(t, domain.RfqStatusInReview, result.Items[0].Status)
	assert.Equal(t, AssignmentAssigned, result.Items[1].Outcome)
	assert.Equal(t, AssignmentAssigned, result.Items[2].Outcome)
	assert.Equal(t, AssignmentFailed, result.Items[3].Outcome)
	assert.Contains(t, result.Items[3].Reason, "at capacity")

	stored, err := f.repos.RFQ.GetByID(f.ctx, r3.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusPending, stored.Status)
}

func TestBulkAssign_RejectsBadRep(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	request := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	_, err := f.svc.Assignment.BulkAssign(f.ctx, f.admin(), []uuid.UUID{request.ID}, uuid.New())
	assert.True(t, errors.IsNotFound(err))

	inactive := &domain.AccountRep{Name: "gone", IsActive: false}
	require.NoError(t, f.repos.AccountRep.Create(f.ctx, inactive))
	_, err = f.svc.Assignment.BulkAssign(f.ctx, f.admin(), []uuid.UUID{request.ID}, inactive.ID)
	var invalid *errors.ErrInvalidInput
	assert.ErrorAs(t, err, &invalid)

	_, err = f.svc.Assignment.BulkAssign(f.ctx, f.admin(), nil, inactive.ID)
	assert.ErrorAs(t, err, &invalid)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	_, rep := f.rep(t, "claimer", intPtr(1))

	first := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	second := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	claimed, err := f.svc.Assignment.Claim(f.ctx, rep, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *rep.RepID, *claimed.AssignedRepID)

	_, err = f.svc.Assignment.Claim(f.ctx, rep, second.ID)
	assert.True(t, errors.IsCapacityExceeded(err))

	_, err = f.svc.Assignment.Claim(f.ctx, customer, second.ID)
	var forbidden *errors.ErrForbidden
	assert.ErrorAs(t, err, &forbidden)
}
