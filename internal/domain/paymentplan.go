package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitpay/backend/pkg/payment"
)

// Schedule defaults applied by the service layer when a request does not
// specify its own.
const (
	DefaultInstallmentCount        = 4
	DefaultInstallmentIntervalDays = 14
)

// PaymentPlan splits a purchase into a sequence of scheduled installments,
// each collected independently through the payment gateway. It owns its
// installments and refund log exclusively; the gateway is a collaborator.
//
// A plan is not safe for concurrent mutation. The owning service must
// serialize MakePayment and ApplyRefund calls per plan instance.
type PaymentPlan struct {
	ID                      uuid.UUID
	UserID                  uuid.UUID
	TotalAmountDue          decimal.Decimal
	OriginationDate         time.Time
	NumberOfInstallments    int
	InstallmentIntervalDays int

	installments []*Installment
	refunds      []*Refund
	gateway      payment.Gateway
	clock        Clock
}

// NewPaymentPlan validates the schedule parameters and generates the full
// installment schedule. The first installment falls due on the origination
// date itself; each subsequent one is intervalDays later. Per-installment
// amounts are total/count rounded down to cents, with the last installment
// absorbing the remainder so the schedule sums exactly to the total.
func NewPaymentPlan(userID uuid.UUID, amount decimal.Decimal, installmentCount, intervalDays int, gw payment.Gateway, clk Clock) (*PaymentPlan, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidArgument("amount", amount.String(), "amount entered must be greater than zero")
	}
	if installmentCount < 1 {
		return nil, ErrInvalidArgument("installmentCount", installmentCount, "there must be at least one installment")
	}
	if intervalDays < 1 {
		return nil, ErrInvalidArgument("installmentIntervalDays", intervalDays, "there must be at least one installment interval day")
	}
	if clk == nil {
		clk = SystemClock()
	}

	p := &PaymentPlan{
		ID:                      uuid.New(),
		UserID:                  userID,
		TotalAmountDue:          amount,
		OriginationDate:         clk.Now(),
		NumberOfInstallments:    installmentCount,
		InstallmentIntervalDays: intervalDays,
		gateway:                 gw,
		clock:                   clk,
	}
	p.initializeInstallments()
	return p, nil
}

func (p *PaymentPlan) initializeInstallments() {
	count := decimal.NewFromInt(int64(p.NumberOfInstallments))
	perInstallment := p.TotalAmountDue.Div(count).RoundDown(2)
	lastInstallment := p.TotalAmountDue.Sub(perInstallment.Mul(count.Sub(decimal.NewFromInt(1))))

	dueDate := p.OriginationDate
	for i := 0; i < p.NumberOfInstallments; i++ {
		amount := perInstallment
		if i == p.NumberOfInstallments-1 {
			amount = lastInstallment
		}
		p.installments = append(p.installments, newInstallment(amount, dueDate))
		dueDate = dueDate.AddDate(0, 0, p.InstallmentIntervalDays)
	}
}

// Installments returns the schedule in due-date order.
func (p *PaymentPlan) Installments() []*Installment { return p.installments }

// Refunds returns the refund log in chronological (insertion) order.
func (p *PaymentPlan) Refunds() []*Refund { return p.refunds }

// NextInstallment returns the pending installment with the earliest due
// date, or nil when nothing is pending. Ties break by insertion order.
func (p *PaymentPlan) NextInstallment() *Installment {
	var next *Installment
	for _, i := range p.installments {
		if !i.IsPending() {
			continue
		}
		if next == nil || i.DueDate.Before(next.DueDate) {
			next = i
		}
	}
	return next
}

// FirstInstallment returns the installment with the overall earliest due
// date. The empty-schedule error is defensive; construction guarantees at
// least one installment.
func (p *PaymentPlan) FirstInstallment() (*Installment, error) {
	if len(p.installments) == 0 {
		return nil, ErrNotFound(fmt.Sprintf("no installments were found for payment plan %s", p.ID))
	}
	first := p.installments[0]
	for _, i := range p.installments[1:] {
		if i.DueDate.Before(first.DueDate) {
			first = i
		}
	}
	return first, nil
}

// OutstandingBalance sums the amounts of installments still pending or
// defaulted. Paid installments are excluded, refunded or not.
func (p *PaymentPlan) OutstandingBalance() decimal.Decimal {
	balance := decimal.Zero
	for _, i := range p.installments {
		if i.IsPending() || i.IsDefaulted() {
			balance = balance.Add(i.Amount)
		}
	}
	return balance
}

// AmountPastDue sums pending and defaulted installments whose due date is
// on or before asOf. Paid installments never count, regardless of date.
func (p *PaymentPlan) AmountPastDue(asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, i := range p.installments {
		if i.DueDate.After(asOf) {
			continue
		}
		if i.IsPending() || i.IsDefaulted() {
			total = total.Add(i.Amount)
		}
	}
	return total
}

// IsPaymentOnTime reports whether nothing is past due right now.
func (p *PaymentPlan) IsPaymentOnTime() bool {
	return p.AmountPastDue(p.clock.Now()).IsZero()
}

// PaidInstallments returns installments settled by a charge or a refund.
func (p *PaymentPlan) PaidInstallments() []*Installment {
	return p.filterInstallments((*Installment).IsPaid)
}

// DefaultedInstallments returns installments whose charge was declined.
func (p *PaymentPlan) DefaultedInstallments() []*Installment {
	return p.filterInstallments((*Installment).IsDefaulted)
}

// PendingInstallments returns installments not yet charged.
func (p *PaymentPlan) PendingInstallments() []*Installment {
	return p.filterInstallments((*Installment).IsPending)
}

func (p *PaymentPlan) filterInstallments(keep func(*Installment) bool) []*Installment {
	var out []*Installment
	for _, i := range p.installments {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// TotalRefunded is the running total of refund volume ever applied to
// this plan. It is not a remaining-refundable ceiling.
func (p *PaymentPlan) TotalRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// MakePayment charges exactly one installment through the gateway. Only
// full-amount payments are accepted. A declined charge (empty settlement
// reference) defaults the installment; a gateway transport error
// propagates unchanged and leaves the installment untouched.
func (p *PaymentPlan) MakePayment(amount decimal.Decimal, installmentID uuid.UUID) error {
	installment := p.findInstallment(installmentID)
	if installment == nil {
		return ErrInvalidArgument("installmentId", installmentID.String(), "no installment found for provided installmentId")
	}
	if !installment.Amount.Equal(amount) {
		return ErrInvalidArgument("amount", amount.String(), "payment amount must match installment amount")
	}

	reference, err := p.gateway.MakePayment(amount)
	if err != nil {
		return fmt.Errorf("gateway payment failed: %w", err)
	}
	installment.SetStatus(reference, p.clock.Now())
	return nil
}

// ApplyRefund logs the refund and settles still-open installments with it,
// in due-date order. The returned amount is the portion that was already
// paid before this refund and must therefore be remitted back as cash; the
// remainder of the refund is absorbed by settling installments instead.
//
// The walk visits every installment and subtracts its amount from the
// running balance whether or not that installment was still open; a
// settlement is attempted whenever the remaining balance covers the
// installment. Re-attempts on settled installments are harmless because
// SetStatus treats Paid and Defaulted as terminal. If a gateway call fails
// mid-walk the error propagates and the refund stays logged.
func (p *PaymentPlan) ApplyRefund(refund *Refund) (decimal.Decimal, error) {
	refundedAgainstPaid := decimal.Zero
	for _, i := range p.installments {
		if i.IsPaid() {
			refundedAgainstPaid = refundedAgainstPaid.Add(i.Amount)
		}
	}

	p.refunds = append(p.refunds, refund)

	refundBalance := refund.Amount
	for _, i := range p.installments {
		if refundBalance.GreaterThanOrEqual(i.Amount) {
			if err := p.MakePayment(i.Amount, i.ID); err != nil {
				return decimal.Zero, err
			}
		}
		refundBalance = refundBalance.Sub(i.Amount)
	}

	return refundedAgainstPaid, nil
}

func (p *PaymentPlan) findInstallment(id uuid.UUID) *Installment {
	for _, i := range p.installments {
		if i.ID == id {
			return i
		}
	}
	return nil
}
