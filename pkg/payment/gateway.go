package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway defines the capability the plan engine needs from a payment
// provider. MakePayment attempts to move the given amount and returns an
// opaque settlement reference: an empty reference signals a decline, any
// other value signals success. A non-nil error is a transport failure, not
// a decline.
type Gateway interface {
	MakePayment(amount decimal.Decimal) (string, error)
}

// SandboxGateway approves every charge with a fresh reference. Used in
// development and as the default wiring when no real provider is
// configured.
type SandboxGateway struct{}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{}
}

func (g *SandboxGateway) MakePayment(amount decimal.Decimal) (string, error) {
	// A real provider would be called here (Stripe/Adyen/etc.).
	return uuid.New().String(), nil
}

// DecliningGateway declines every charge. Useful for exercising the
// defaulted path in development.
type DecliningGateway struct{}

func NewDecliningGateway() *DecliningGateway {
	return &DecliningGateway{}
}

func (g *DecliningGateway) MakePayment(amount decimal.Decimal) (string, error) {
	return "", nil
}
