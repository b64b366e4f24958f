package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/splitpay/backend/internal/domain"
	"github.com/splitpay/backend/internal/repository"
	"github.com/splitpay/backend/pkg/payment"
)

// SummaryWriter is the slice of the read-model repository the plan service
// needs: pushing fresh snapshots after a mutation.
type SummaryWriter interface {
	Upsert(ctx context.Context, s domain.PlanSummary) error
}

// PlanService owns the lifecycle of live payment plans. It applies schedule
// defaults, serializes mutations per plan, enforces refund idempotency
// keys, and keeps the denormalized read model in sync.
type PlanService struct {
	store     *repository.PlanStore
	summaries SummaryWriter
	gateway   payment.Gateway
	clock     domain.Clock
	log       *logrus.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewPlanService(store *repository.PlanStore, summaries SummaryWriter, gateway payment.Gateway, clock domain.Clock, log *logrus.Logger) *PlanService {
	return &PlanService{
		store:     store,
		summaries: summaries,
		gateway:   gateway,
		clock:     clock,
		log:       log,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// planLock returns the mutex serializing mutations for one plan. The plan
// engine itself is single-threaded; this is the owning-service
// serialization it requires.
func (s *PlanService) planLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreatePlan splits amount into a schedule of installments for the user.
// Zero count or interval fall back to the defaults (4 installments, 14
// days apart).
func (s *PlanService) CreatePlan(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, installmentCount, intervalDays int) (*domain.PaymentPlan, error) {
	if installmentCount == 0 {
		installmentCount = domain.DefaultInstallmentCount
	}
	if intervalDays == 0 {
		intervalDays = domain.DefaultInstallmentIntervalDays
	}

	plan, err := domain.NewPaymentPlan(userID, amount, installmentCount, intervalDays, s.gateway, s.clock)
	if err != nil {
		return nil, err
	}

	s.store.Put(plan)
	s.syncSummary(ctx, plan)

	s.log.WithFields(logrus.Fields{
		"planId": plan.ID,
		"userId": userID,
		"amount": amount,
	}).Info("payment plan created")
	return plan, nil
}

// GetPlan returns the live plan by ID.
func (s *PlanService) GetPlan(ctx context.Context, planID uuid.UUID) (*domain.PaymentPlan, error) {
	plan := s.store.Get(planID)
	if plan == nil {
		return nil, domain.ErrNotFound("payment plan not found")
	}
	return plan, nil
}

// MakePayment collects a single installment of the plan.
func (s *PlanService) MakePayment(ctx context.Context, planID, installmentID uuid.UUID, amount decimal.Decimal) error {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return err
	}

	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	if err := plan.MakePayment(amount, installmentID); err != nil {
		return err
	}
	s.syncSummary(ctx, plan)

	s.log.WithFields(logrus.Fields{
		"planId":        planID,
		"installmentId": installmentID,
		"amount":        amount,
	}).Info("installment payment applied")
	return nil
}

// ApplyRefund logs a refund against the plan and settles open installments
// with it. It returns the cash portion of the refund: the amount that was
// already paid before the refund arrived. A refund whose idempotency key
// was already seen on this plan is rejected; the plan engine itself never
// validates keys.
func (s *PlanService) ApplyRefund(ctx context.Context, planID uuid.UUID, idempotencyKey string, amount decimal.Decimal) (*domain.Refund, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, domain.ErrInvalidArgument("amount", amount.String(), "refund amount must be greater than zero")
	}

	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	for _, r := range plan.Refunds() {
		if r.IdempotencyKey == idempotencyKey {
			return nil, decimal.Zero, domain.ErrInvalidArgument("idempotencyKey", idempotencyKey, "a refund with this idempotency key was already applied")
		}
	}

	refund := domain.NewRefund(idempotencyKey, amount, s.clock)
	cashRefund, err := plan.ApplyRefund(refund)
	// The refund log is already committed even when the settlement walk
	// fails downstream, so the summary must be refreshed either way.
	s.syncSummary(ctx, plan)
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.log.WithFields(logrus.Fields{
		"planId":     planID,
		"refundId":   refund.ID,
		"amount":     amount,
		"cashRefund": cashRefund,
	}).Info("refund applied")
	return refund, cashRefund, nil
}

func (s *PlanService) syncSummary(ctx context.Context, plan *domain.PaymentPlan) {
	if err := s.summaries.Upsert(ctx, plan.Summary()); err != nil {
		// The live plan is authoritative; a stale read model is logged,
		// not fatal to the payment operation.
		s.log.WithError(err).WithField("planId", plan.ID).Warn("failed to refresh plan summary")
	}
}
