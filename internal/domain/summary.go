package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanSummary is the denormalized, read-only snapshot of a payment plan
// used for cross-plan reporting. It is refreshed by the plan service after
// every mutation; reporting never touches live PaymentPlan objects.
type PlanSummary struct {
	ID                      uuid.UUID       `json:"id"`
	UserID                  uuid.UUID       `json:"userId"`
	TotalAmountDue          decimal.Decimal `json:"totalAmountDue"`
	OriginationDate         time.Time       `json:"originationDate"`
	NumberOfInstallments    int             `json:"numberOfInstallments"`
	InstallmentIntervalDays int             `json:"installmentIntervalDays"`
	IsPaymentOnTime         bool            `json:"isPaymentOnTime"`
	OutstandingBalance      decimal.Decimal `json:"outstandingBalance"`
}

// Summary builds the current read-model snapshot of the plan.
func (p *PaymentPlan) Summary() PlanSummary {
	return PlanSummary{
		ID:                      p.ID,
		UserID:                  p.UserID,
		TotalAmountDue:          p.TotalAmountDue,
		OriginationDate:         p.OriginationDate,
		NumberOfInstallments:    p.NumberOfInstallments,
		InstallmentIntervalDays: p.InstallmentIntervalDays,
		IsPaymentOnTime:         p.IsPaymentOnTime(),
		OutstandingBalance:      p.OutstandingBalance(),
	}
}

// CreatePlanRequest is the input for creating a payment plan. Amount is a
// decimal string; zero count/interval fall back to the plan defaults.
type CreatePlanRequest struct {
	Amount           string `json:"amount" validate:"required"`
	InstallmentCount int    `json:"installmentCount" validate:"omitempty,min=1"`
	IntervalDays     int    `json:"intervalDays" validate:"omitempty,min=1"`
}

// MakePaymentRequest is the input for collecting a single installment.
type MakePaymentRequest struct {
	InstallmentID string `json:"installmentId" validate:"required,uuid"`
	Amount        string `json:"amount" validate:"required"`
}

// ApplyRefundRequest is the input for applying a refund against a plan.
type ApplyRefundRequest struct {
	IdempotencyKey string `json:"idempotencyKey" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
}

// InstallmentResponse is the API view of an installment.
type InstallmentResponse struct {
	ID               uuid.UUID       `json:"id"`
	DueDate          time.Time       `json:"dueDate"`
	Amount           decimal.Decimal `json:"amount"`
	Status           string          `json:"status"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	SettlementDate   *time.Time      `json:"settlementDate,omitempty"`
}

// PlanResponse is the API view of a plan with its schedule and refund log.
type PlanResponse struct {
	ID                      uuid.UUID             `json:"id"`
	UserID                  uuid.UUID             `json:"userId"`
	TotalAmountDue          decimal.Decimal       `json:"totalAmountDue"`
	OriginationDate         time.Time             `json:"originationDate"`
	NumberOfInstallments    int                   `json:"numberOfInstallments"`
	InstallmentIntervalDays int                   `json:"installmentIntervalDays"`
	OutstandingBalance      decimal.Decimal       `json:"outstandingBalance"`
	TotalRefunded           decimal.Decimal       `json:"totalRefunded"`
	Installments            []InstallmentResponse `json:"installments"`
	Refunds                 []*Refund             `json:"refunds"`
}

// RefundResponse reports the outcome of a refund application.
type RefundResponse struct {
	RefundID         uuid.UUID       `json:"refundId"`
	CashRefundAmount decimal.Decimal `json:"cashRefundAmount"`
}

// Response converts the plan to its API representation.
func (p *PaymentPlan) Response() PlanResponse {
	installments := make([]InstallmentResponse, 0, len(p.installments))
	for _, i := range p.installments {
		resp := InstallmentResponse{
			ID:               i.ID,
			DueDate:          i.DueDate,
			Amount:           i.Amount,
			Status:           i.Status().String(),
			PaymentReference: i.PaymentReference,
		}
		if i.IsPaid() {
			settled := i.SettlementDate
			resp.SettlementDate = &settled
		}
		installments = append(installments, resp)
	}

	refunds := p.refunds
	if refunds == nil {
		refunds = []*Refund{}
	}

	return PlanResponse{
		ID:                      p.ID,
		UserID:                  p.UserID,
		TotalAmountDue:          p.TotalAmountDue,
		OriginationDate:         p.OriginationDate,
		NumberOfInstallments:    p.NumberOfInstallments,
		InstallmentIntervalDays: p.InstallmentIntervalDays,
		OutstandingBalance:      p.OutstandingBalance(),
		TotalRefunded:           p.TotalRefunded(),
		Installments:            installments,
		Refunds:                 refunds,
	}
}
