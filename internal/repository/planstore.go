package repository

import (
	"sync"

	"github.com/google/uuid"
	"github.com/splitpay/backend/internal/domain"
)

// PlanStore holds the live PaymentPlan aggregates. Live plans are
// process-local; only their summaries are mirrored to Postgres. The store
// guards its own map, but serialization of mutations on an individual plan
// is the plan service's job.
type PlanStore struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]*domain.PaymentPlan
}

func NewPlanStore() *PlanStore {
	return &PlanStore{plans: make(map[uuid.UUID]*domain.PaymentPlan)}
}

// Put registers a plan under its ID.
func (s *PlanStore) Put(plan *domain.PaymentPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
}

// Get returns the plan with the given ID, or nil when absent.
func (s *PlanStore) Get(id uuid.UUID) *domain.PaymentPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans[id]
}
