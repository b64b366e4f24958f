package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Refund is an immutable record of a refund event. The idempotency key is
// caller-supplied; uniqueness is enforced by the service layer, not here.
type Refund struct {
	ID             uuid.UUID       `json:"id"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
}

// NewRefund creates a refund record stamped with the clock's current time.
// A nil clock falls back to the system clock.
func NewRefund(idempotencyKey string, amount decimal.Decimal, clk Clock) *Refund {
	if clk == nil {
		clk = SystemClock()
	}
	return &Refund{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		Amount:         amount,
		Date:           clk.Now(),
	}
}
