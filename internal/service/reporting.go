package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitpay/backend/internal/domain"
)

// PlanSummaryReader supplies the denormalized plan snapshots reporting
// works on. Implemented by repository.SummaryRepository.
type PlanSummaryReader interface {
	GetPaymentPlansByUserID(ctx context.Context, userID uuid.UUID) ([]domain.PlanSummary, error)
}

// ReportingService answers cross-plan queries over the read model. It
// never touches live PaymentPlan objects.
type ReportingService struct {
	summaries PlanSummaryReader
}

func NewReportingService(summaries PlanSummaryReader) *ReportingService {
	return &ReportingService{summaries: summaries}
}

// GetOnTimePaymentRatio returns the fraction of the user's plans with
// nothing past due. A user with no plans yields a not-found error rather
// than a zero-by-zero division.
func (s *ReportingService) GetOnTimePaymentRatio(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	plans, err := s.summaries.GetPaymentPlansByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, domain.ErrInternal("failed to load plan summaries", err)
	}
	if len(plans) == 0 {
		return decimal.Zero, domain.ErrNotFound("no payment plans found for user")
	}

	onTime := 0
	for _, p := range plans {
		if p.IsPaymentOnTime {
			onTime++
		}
	}
	return decimal.NewFromInt(int64(onTime)).Div(decimal.NewFromInt(int64(len(plans)))), nil
}

// GetOutstandingBalances sums the outstanding balance across every plan
// the user has.
func (s *ReportingService) GetOutstandingBalances(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	plans, err := s.summaries.GetPaymentPlansByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, domain.ErrInternal("failed to load plan summaries", err)
	}

	total := decimal.Zero
	for _, p := range plans {
		total = total.Add(p.OutstandingBalance)
	}
	return total, nil
}
