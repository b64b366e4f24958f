package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is the settlement state of a single installment.
type InstallmentStatus int

const (
	InstallmentPending   InstallmentStatus = iota // not yet charged
	InstallmentPaid                               // charged, or covered by a refund
	InstallmentDefaulted                          // charge declined
)

func (s InstallmentStatus) String() string {
	switch s {
	case InstallmentPending:
		return "pending"
	case InstallmentPaid:
		return "paid"
	case InstallmentDefaulted:
		return "defaulted"
	default:
		return "unknown"
	}
}

// Installment is a single scheduled obligation within a payment plan.
// Installments are created by the owning plan and mutated only through
// SetStatus.
type Installment struct {
	ID               uuid.UUID
	DueDate          time.Time
	Amount           decimal.Decimal
	PaymentReference string
	SettlementDate   time.Time

	status InstallmentStatus
}

func newInstallment(amount decimal.Decimal, dueDate time.Time) *Installment {
	return &Installment{
		ID:      uuid.New(),
		Amount:  amount,
		DueDate: dueDate,
		status:  InstallmentPending,
	}
}

func (i *Installment) IsPending() bool   { return i.status == InstallmentPending }
func (i *Installment) IsPaid() bool      { return i.status == InstallmentPaid }
func (i *Installment) IsDefaulted() bool { return i.status == InstallmentDefaulted }

// Status returns the current settlement state.
func (i *Installment) Status() InstallmentStatus { return i.status }

// SetStatus applies the outcome of a charge attempt. An empty payment
// reference means the charge was declined and the installment defaults;
// any other reference marks it paid at settledAt. Paid and Defaulted are
// terminal: once left, Pending is never re-entered and a settled
// installment is never flipped, so calling SetStatus again is a no-op.
func (i *Installment) SetStatus(paymentReference string, settledAt time.Time) {
	if !i.IsPending() {
		return
	}
	if paymentReference == "" {
		i.status = InstallmentDefaulted
		return
	}
	i.PaymentReference = paymentReference
	i.SettlementDate = settledAt
	i.status = InstallmentPaid
}
