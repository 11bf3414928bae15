// Package memory is an in-process implementation of the repository interfaces.
// A single mutex guards the whole store, which makes every write atomic with
// respect to the live counts it depends on.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
)

type store struct {
	mu         sync.Mutex
	principals map[uuid.UUID]*domain.Principal
	catalog    map[string]*domain.CatalogEntry
	carts      map[uuid.UUID]*domain.SavedCart
	rfqs       map[uuid.UUID]*domain.RfqRequest
	events     map[uuid.UUID][]*domain.RfqEvent
	reps       map[uuid.UUID]*domain.AccountRep
	sequence   int64
}

// NewRepositories returns repositories backed by one shared in-memory store
func NewRepositories() *repository.Repositories {
	s := &store{
		principals: make(map[uuid.UUID]*domain.Principal),
		catalog:    make(map[string]*domain.CatalogEntry),
		carts:      make(map[uuid.UUID]*domain.SavedCart),
		rfqs:       make(map[uuid.UUID]*domain.RfqRequest),
		events:     make(map[uuid.UUID][]*domain.RfqEvent),
		reps:       make(map[uuid.UUID]*domain.AccountRep),
	}
	return &repository.Repositories{
		Principal:  &principalRepository{s},
		Catalog:    &catalogRepository{s},
		Cart:       &cartRepository{s},
		RFQ:        &rfqRepository{s},
		AccountRep: &accountRepRepository{s},
	}
}

// activeCount must be called with mu held
func (s *store) activeCount(repID uuid.UUID) int {
	n := 0
	for _, r := range s.rfqs {
		if r.AssignedRepID != nil && *r.AssignedRepID == repID && r.Status.CountsTowardCapacity() {
			n++
		}
	}
	return n
}

func copyEvent(e *domain.RfqEvent) *domain.RfqEvent {
	c := *e
	if e.EventData != nil {
		c.EventData = make(map[string]interface{}, len(e.EventData))
		for k, v := range e.EventData {
			c.EventData[k] = v
		}
	}
	return &c
}
