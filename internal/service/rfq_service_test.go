package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/rfq"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

func TestRFQService_Submit(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierPremium, "NE")

	request := f.submit(t, customer, "", 10, 4)
	assert.Equal(t, "RFQ-20260302-00001", request.RequestNumber)
	assert.Equal(t, domain.RfqStatusPending, request.Status)
	assert.Equal(t, domain.RfqPriorityNormal, request.Priority)
	assert.Equal(t, "NE", request.Region)
	assert.Nil(t, request.AssignedRepID)
	assert.Nil(t, request.ValidUntil)
	require.Len(t, request.Items, 2)
	assert.Nil(t, request.Items[0].UnitPrice)

	second := f.submit(t, customer, domain.RfqPriorityHigh, 1)
	assert.Equal(t, "RFQ-20260302-00002", second.RequestNumber)

	events, err := f.svc.RFQs.Events(f.ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, rfq.EventSubmitted, events[0].EventType)
	assert.Equal(t, domain.RfqStatusPending, events[0].ToStatus)
}

func TestRFQService_SubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")

	_, err := f.svc.RFQs.Submit(f.ctx, customer, SubmitRFQInput{})
	var qty *errors.ErrInvalidQuantity
	assert.ErrorAs(t, err, &qty)

	_, err = f.svc.RFQs.Submit(f.ctx, customer, SubmitRFQInput{
		Items: []SubmitRFQItem{{ProductTitle: "Anchor", SKU: "AN-1", Quantity: 0}},
	})
	assert.ErrorAs(t, err, &qty)

	_, err = f.svc.RFQs.Submit(f.ctx, customer, SubmitRFQInput{
		Priority: "ASAP",
		Items:    []SubmitRFQItem{{ProductTitle: "Anchor", SKU: "AN-1", Quantity: 1}},
	})
	var invalid *errors.ErrInvalidInput
	assert.ErrorAs(t, err, &invalid)

	all, err := f.svc.RFQs.List(f.ctx, repository.RFQFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRFQService_ReadAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(domain.DealerTierStandard, "")
	stranger := f.customer(domain.DealerTierStandard, "")
	_, alice := f.rep(t, "alice", nil)
	_, bob := f.rep(t, "bob", nil)

	request := f.submit(t, owner, domain.RfqPriorityNormal, 3)

	_, err := f.svc.RFQs.Get(f.ctx, stranger, request.ID)
	assert.True(t, errors.IsNotFound(err))
	_, err = f.svc.RFQs.Get(f.ctx, bob, request.ID)
	assert.NoError(t, err, "reps see the PENDING queue")

	_, err = f.svc.Assignment.Claim(f.ctx, alice, request.ID)
	require.NoError(t, err)

	_, err = f.svc.RFQs.Get(f.ctx, alice, request.ID)
	assert.NoError(t, err)
	_, err = f.svc.RFQs.Get(f.ctx, bob, request.ID)
	var forbidden *errors.ErrForbidden
	assert.ErrorAs(t, err, &forbidden)
	_, err = f.svc.RFQs.Get(f.ctx, f.admin(), request.ID)
	assert.NoError(t, err)

	mine, err := f.svc.RFQs.ListForRep(f.ctx, *alice.RepID, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := f.svc.RFQs.ListForRep(f.ctx, *bob.RepID, nil)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestRFQService_QuoteAndAccept(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	_, alice := f.rep(t, "alice", intPtr(5))

	request := f.submit(t, customer, domain.RfqPriorityNormal, 10)
	_, err := f.svc.Assignment.Claim(f.ctx, alice, request.ID)
	require.NoError(t, err)

	quoted, err := f.svc.Quotes.BuildQuote(f.ctx, alice, request.ID, QuoteInput{
		Lines: []QuoteLineInput{{ItemID: request.Items[0].ID, UnitPrice: decimal.RequireFromString("12.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusQuoted, quoted.Status)

	f.clock.Advance(24 * time.Hour)
	accepted, err := f.svc.RFQs.Respond(f.ctx, customer, request.ID, domain.RfqStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusAccepted, accepted.Status)

	_, err = f.svc.RFQs.Respond(f.ctx, customer, request.ID, domain.RfqStatusDeclined)
	var transition *errors.ErrInvalidStateTransition
	assert.ErrorAs(t, err, &transition)

	events, err := f.svc.RFQs.Events(f.ctx, request.ID)
	require.NoError(t, err)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Equal(t, []string{rfq.EventSubmitted, rfq.EventAssigned, rfq.EventQuoted, rfq.EventResponded}, types)

	count, err := f.repos.RFQ.CountActiveByRep(f.ctx, *alice.RepID)
	require.NoError(t, err)
	assert.Zero(t, count, "an accepted RFQ no longer occupies the rep")
}

func TestRFQService_RespondOnlyByOwner(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	stranger := f.customer(domain.DealerTierStandard, "")
	request := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	_, err := f.svc.RFQs.Respond(f.ctx, stranger, request.ID, domain.RfqStatusAccepted)
	assert.True(t, errors.IsNotFound(err))

	_, err = f.svc.RFQs.Respond(f.ctx, customer, request.ID, domain.RfqStatusAccepted)
	var transition *errors.ErrInvalidStateTransition
	assert.ErrorAs(t, err, &transition, "a PENDING request cannot be accepted")
}

func TestRFQService_RepCannotDecideForCustomer(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	_, rep := f.rep(t, "quoter", nil)

	request := f.submit(t, customer, domain.RfqPriorityNormal, 4)
	_, err := f.svc.Assignment.Claim(f.ctx, rep, request.ID)
	require.NoError(t, err)
	_, err = f.svc.Quotes.BuildQuote(f.ctx, rep, request.ID, QuoteInput{
		Lines: []QuoteLineInput{{ItemID: request.Items[0].ID, UnitPrice: decimal.RequireFromString("9.99")}},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateRFQStatus(f.ctx, rep, request.ID, domain.RfqStatusAccepted)
	var forbidden *errors.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
	stored, err := f.repos.RFQ.GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusQuoted, stored.Status)

	admin := f.admin()
	declined, err := f.svc.UpdateRFQStatus(f.ctx, admin, request.ID, domain.RfqStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusDeclined, declined.Status)

	events, err := f.svc.RFQs.Events(f.ctx, request.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, rfq.EventResponded, last.EventType)
	assert.Equal(t, admin.ID, *last.ActorID)
	assert.Equal(t, customer.ID.String(), last.EventData["on_behalf_of"])
}

func TestRFQService_LazyExpiryOnRead(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.RFQ.ResponseSLA = 48 * time.Hour })
	customer := f.customer(domain.DealerTierStandard, "")

	request := f.submit(t, customer, domain.RfqPriorityNormal, 2)
	require.NotNil(t, request.ValidUntil)
	assert.Equal(t, f.clock.Now().Add(48*time.Hour), *request.ValidUntil)

	f.clock.Advance(47 * time.Hour)
	got, err := f.svc.RFQs.Get(f.ctx, customer, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusPending, got.Status)

	f.clock.Advance(2 * time.Hour)
	got, err = f.svc.RFQs.Get(f.ctx, customer, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusExpired, got.Status)

	stored, err := f.repos.RFQ.GetByID(f.ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusExpired, stored.Status)

	events, err := f.svc.RFQs.Events(f.ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, rfq.EventExpired, events[1].EventType)
	assert.Equal(t, domain.RfqStatusPending, events[1].FromStatus)
	assert.Nil(t, events[1].ActorID)
}

func TestRFQService_ExpireOverdue(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.RFQ.ResponseSLA = time.Hour })
	customer := f.customer(domain.DealerTierStandard, "")
	_, alice := f.rep(t, "alice", nil)

	stale := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	claimed := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	_, err := f.svc.Assignment.Claim(f.ctx, alice, claimed.ID)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	fresh := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	f.clock.Advance(45 * time.Minute)
	n, err := f.svc.RFQs.ExpireOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[uuid.UUID]domain.RfqStatus{
		stale.ID:   domain.RfqStatusExpired,
		claimed.ID: domain.RfqStatusExpired,
		fresh.ID:   domain.RfqStatusPending,
	} {
		stored, err := f.repos.RFQ.GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, stored.Status)
	}

	count, err := f.repos.RFQ.CountActiveByRep(f.ctx, *alice.RepID)
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err = f.svc.RFQs.ExpireOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRFQService_ExpireOnRequest(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.RFQ.ResponseSLA = time.Hour })
	customer := f.customer(domain.DealerTierStandard, "")
	request := f.submit(t, customer, domain.RfqPriorityNormal, 1)

	_, err := f.svc.RFQs.Expire(f.ctx, f.admin(), request.ID)
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)

	f.clock.Advance(2 * time.Hour)
	expired, err := f.svc.RFQs.Expire(f.ctx, f.admin(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RfqStatusExpired, expired.Status)
}

func TestRFQService_ListForCustomer(t *testing.T) {
	f := newFixture(t)
	customer := f.customer(domain.DealerTierStandard, "")
	other := f.customer(domain.DealerTierStandard, "")

	first := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	f.clock.Advance(time.Minute)
	second := f.submit(t, customer, domain.RfqPriorityNormal, 1)
	f.submit(t, other, domain.RfqPriorityNormal, 1)

	list, err := f.svc.RFQs.ListForCustomer(f.ctx, customer, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
}
