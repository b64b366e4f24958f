package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway returns a canned settlement outcome. Tests flip the fields
// between calls to simulate approvals, declines, and transport failures.
type stubGateway struct {
	decline bool
	err     error
	calls   int
}

func (g *stubGateway) MakePayment(amount decimal.Decimal) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if g.decline {
		return "", nil
	}
	return fmt.Sprintf("ref-%d", g.calls), nil
}

var testOrigination = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return testOrigination })
}

func newTestPlan(t *testing.T, amount string, count, intervalDays int, gw *stubGateway) *PaymentPlan {
	t.Helper()
	plan, err := NewPaymentPlan(uuid.New(), decimal.RequireFromString(amount), count, intervalDays, gw, fixedClock())
	require.NoError(t, err)
	return plan
}

func TestNewPaymentPlan_InvalidParameters(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		count        int
		intervalDays int
		wantParam    string
		wantMessage  string
	}{
		{"negative amount", "-100", 4, 2, "amount", "amount entered must be greater than zero. amount: -100"},
		{"zero amount", "0", 4, 14, "amount", "amount entered must be greater than zero. amount: 0"},
		{"zero count", "123.23", 0, 2, "installmentCount", "there must be at least one installment. installmentCount: 0"},
		{"negative count", "123.23", -1, 2, "installmentCount", "there must be at least one installment. installmentCount: -1"},
		{"negative interval", "200", 4, -2, "installmentIntervalDays", "there must be at least one installment interval day. installmentIntervalDays: -2"},
		{"zero interval", "200", 4, 0, "installmentIntervalDays", "there must be at least one installment interval day. installmentIntervalDays: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPaymentPlan(uuid.New(), decimal.RequireFromString(tt.amount), tt.count, tt.intervalDays, &stubGateway{}, fixedClock())

			require.Error(t, err)
			assert.Nil(t, plan)

			appErr, ok := AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantParam, appErr.Param)
			assert.Equal(t, tt.wantMessage, appErr.Message)
		})
	}
}

func TestNewPaymentPlan_CreatesCorrectNumberOfInstallments(t *testing.T) {
	tests := []struct {
		amount       string
		count        int
		intervalDays int
	}{
		{"1000", 4, 2},
		{"123.23", 2, 2},
		{"50", 1, 7},
	}

	for _, tt := range tests {
		plan := newTestPlan(t, tt.amount, tt.count, tt.intervalDays, &stubGateway{})
		assert.Len(t, plan.Installments(), tt.count)
	}
}

func TestNewPaymentPlan_AllInstallmentsStartPending(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})

	for _, i := range plan.Installments() {
		assert.True(t, i.IsPending())
	}
}

func TestNewPaymentPlan_DueDatesStartAtOrigination(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})

	assert.Equal(t, testOrigination, plan.OriginationDate)
	expected := testOrigination
	for _, i := range plan.Installments() {
		assert.Equal(t, expected, i.DueDate)
		expected = expected.AddDate(0, 0, 14)
	}
}

func TestNewPaymentPlan_EvenSplit(t *testing.T) {
	plan := newTestPlan(t, "1000", 4, 2, &stubGateway{})

	for _, i := range plan.Installments() {
		assert.True(t, i.Amount.Equal(decimal.NewFromInt(250)), "got %s", i.Amount)
	}
}

func TestNewPaymentPlan_LastInstallmentAbsorbsRemainder(t *testing.T) {
	tests := []struct {
		amount string
		count  int
		want   []string
	}{
		{"100", 3, []string{"33.33", "33.33", "33.34"}},
		{"123.23", 2, []string{"61.61", "61.62"}},
		{"0.05", 4, []string{"0.01", "0.01", "0.01", "0.02"}},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			plan := newTestPlan(t, tt.amount, tt.count, 14, &stubGateway{})

			sum := decimal.Zero
			for n, i := range plan.Installments() {
				assert.True(t, i.Amount.Equal(decimal.RequireFromString(tt.want[n])),
					"installment %d: want %s got %s", n, tt.want[n], i.Amount)
				sum = sum.Add(i.Amount)
			}
			assert.True(t, sum.Equal(plan.TotalAmountDue), "schedule must sum to the total")
		})
	}
}

func TestFirstInstallment_ReturnsEarliestDue(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})

	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	assert.Equal(t, testOrigination, first.DueDate)
}

func TestFirstInstallment_EmptySchedule(t *testing.T) {
	// Cannot happen through the constructor; defensive path only.
	plan := &PaymentPlan{ID: uuid.New()}

	_, err := plan.FirstInstallment()
	require.Error(t, err)
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Message, plan.ID.String())
}

func TestNextInstallment_WalksScheduleInDueDateOrder(t *testing.T) {
	gw := &stubGateway{}
	plan := newTestPlan(t, "100", 4, 14, gw)

	for n := 0; n < 4; n++ {
		next := plan.NextInstallment()
		require.NotNil(t, next)
		assert.Equal(t, testOrigination.AddDate(0, 0, n*14), next.DueDate)
		require.NoError(t, plan.MakePayment(next.Amount, next.ID))
	}

	assert.Nil(t, plan.NextInstallment(), "no pending installments remain")
}

func TestMakePayment_UnknownInstallment(t *testing.T) {
	gw := &stubGateway{}
	plan := newTestPlan(t, "100", 4, 14, gw)
	randomID := uuid.New()

	err := plan.MakePayment(decimal.NewFromInt(25), randomID)

	require.Error(t, err)
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "installmentId", appErr.Param)
	assert.Contains(t, appErr.Message, randomID.String())
	assert.Zero(t, gw.calls, "gateway must not be called")
	assert.Len(t, plan.PendingInstallments(), 4, "nothing may be mutated")
}

func TestMakePayment_AmountMismatch(t *testing.T) {
	for _, amount := range []string{"20", "26"} {
		t.Run(amount, func(t *testing.T) {
			gw := &stubGateway{}
			plan := newTestPlan(t, "100", 4, 14, gw)
			first, err := plan.FirstInstallment()
			require.NoError(t, err)

			err = plan.MakePayment(decimal.RequireFromString(amount), first.ID)

			require.Error(t, err)
			appErr, ok := AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, "amount", appErr.Param)
			assert.Contains(t, appErr.Message, "payment amount must match installment amount")
			assert.True(t, first.IsPending())
			assert.Zero(t, gw.calls)
		})
	}
}

func TestMakePayment_SettlesInstallment(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)

	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	assert.True(t, first.IsPaid())
	assert.NotEmpty(t, first.PaymentReference)
	assert.Equal(t, testOrigination, first.SettlementDate)
	assert.Len(t, plan.PaidInstallments(), 1)
	assert.Len(t, plan.PendingInstallments(), 3)
}

func TestMakePayment_DeclinedChargeDefaults(t *testing.T) {
	gw := &stubGateway{}
	plan := newTestPlan(t, "100", 4, 14, gw)

	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	gw.decline = true
	second := plan.NextInstallment()
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), second.ID))

	assert.True(t, second.IsDefaulted())
	assert.Len(t, plan.DefaultedInstallments(), 1)

	// Defaulted installments stay in the balance and go past due.
	assert.True(t, plan.OutstandingBalance().Equal(decimal.NewFromInt(75)))
	pastDue := plan.AmountPastDue(testOrigination.AddDate(0, 3, 0))
	assert.True(t, pastDue.Equal(decimal.NewFromInt(75)), "got %s", pastDue)
}

func TestMakePayment_GatewayErrorPropagates(t *testing.T) {
	gwErr := errors.New("gateway unreachable")
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{err: gwErr})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)

	err = plan.MakePayment(decimal.NewFromInt(25), first.ID)

	require.ErrorIs(t, err, gwErr)
	assert.True(t, first.IsPending(), "installment stays in last applied state")
}

func TestOutstandingBalance_AfterTwoPayments(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})

	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	second := plan.NextInstallment()
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), second.ID))

	assert.True(t, plan.OutstandingBalance().Equal(decimal.NewFromInt(50)))
}

func TestAmountPastDue(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	t.Run("paid installments never count", func(t *testing.T) {
		pastDue := plan.AmountPastDue(testOrigination.AddDate(0, 3, 0))
		assert.True(t, pastDue.Equal(decimal.NewFromInt(75)), "got %s", pastDue)
	})

	t.Run("future installments excluded", func(t *testing.T) {
		// Second installment due exactly 14 days out; as-of day 14 it
		// counts (due date on or before the as-of date), day 13 it does not.
		pastDue := plan.AmountPastDue(testOrigination.AddDate(0, 0, 13))
		assert.True(t, pastDue.IsZero(), "got %s", pastDue)

		pastDue = plan.AmountPastDue(testOrigination.AddDate(0, 0, 14))
		assert.True(t, pastDue.Equal(decimal.NewFromInt(25)), "got %s", pastDue)
	})
}

func TestIsPaymentOnTime(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	assert.False(t, plan.IsPaymentOnTime(), "first installment is due at origination")

	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))
	assert.True(t, plan.IsPaymentOnTime())
}

func TestApplyRefund_ReturnsAmountPaidBeforeRefund(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	refund := NewRefund(uuid.New().String(), decimal.NewFromInt(100), fixedClock())
	cashRefund, err := plan.ApplyRefund(refund)
	require.NoError(t, err)

	assert.True(t, cashRefund.Equal(decimal.NewFromInt(25)), "cash portion is what was paid before the refund")
	assert.True(t, plan.OutstandingBalance().IsZero())
	require.Len(t, plan.Refunds(), 1)
	assert.True(t, plan.Refunds()[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestApplyRefund_TotalRefundedAccumulates(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	_, err = plan.ApplyRefund(NewRefund(uuid.New().String(), decimal.NewFromInt(100), fixedClock()))
	require.NoError(t, err)

	// Running total of refund volume, not a remaining-refundable ceiling.
	assert.True(t, plan.TotalRefunded().Equal(decimal.NewFromInt(100)))

	_, err = plan.ApplyRefund(NewRefund(uuid.New().String(), decimal.NewFromInt(10), fixedClock()))
	require.NoError(t, err)
	assert.True(t, plan.TotalRefunded().Equal(decimal.NewFromInt(110)))
}

// The refund walk subtracts every installment's amount from the running
// balance, settled or not. A refund can therefore be absorbed by
// installments that were already paid, leaving later pending ones
// untouched. This pins the walk's arithmetic.
func TestApplyRefund_WalkSpendsBalanceOnSettledInstallments(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))
	second := plan.NextInstallment()
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), second.ID))

	cashRefund, err := plan.ApplyRefund(NewRefund(uuid.New().String(), decimal.NewFromInt(60), fixedClock()))
	require.NoError(t, err)

	// 60 covers installments 1 and 2 (already paid, 25 each); only 10
	// remains by installment 3, so neither pending installment settles.
	assert.True(t, cashRefund.Equal(decimal.NewFromInt(50)))
	assert.Len(t, plan.PendingInstallments(), 2)
	assert.True(t, plan.OutstandingBalance().Equal(decimal.NewFromInt(50)))
}

func TestApplyRefund_GatewayFailureKeepsRefundLogged(t *testing.T) {
	gw := &stubGateway{}
	plan := newTestPlan(t, "100", 4, 14, gw)

	gw.err = errors.New("gateway down")
	_, err := plan.ApplyRefund(NewRefund(uuid.New().String(), decimal.NewFromInt(100), fixedClock()))

	require.Error(t, err)
	assert.Len(t, plan.Refunds(), 1, "refund log append is committed before the walk")
	assert.Len(t, plan.PendingInstallments(), 4)
}

func TestApplyRefund_DeclinedSettlementDefaultsInstallments(t *testing.T) {
	gw := &stubGateway{decline: true}
	plan := newTestPlan(t, "100", 4, 14, gw)

	cashRefund, err := plan.ApplyRefund(NewRefund(uuid.New().String(), decimal.NewFromInt(100), fixedClock()))
	require.NoError(t, err)

	assert.True(t, cashRefund.IsZero(), "nothing was paid before the refund")
	assert.Len(t, plan.DefaultedInstallments(), 4)
	assert.True(t, plan.OutstandingBalance().Equal(decimal.NewFromInt(100)))
}

func TestSummary_SnapshotsPlanState(t *testing.T) {
	plan := newTestPlan(t, "100", 4, 14, &stubGateway{})
	first, err := plan.FirstInstallment()
	require.NoError(t, err)
	require.NoError(t, plan.MakePayment(decimal.NewFromInt(25), first.ID))

	s := plan.Summary()

	assert.Equal(t, plan.ID, s.ID)
	assert.Equal(t, plan.UserID, s.UserID)
	assert.True(t, s.TotalAmountDue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, testOrigination, s.OriginationDate)
	assert.Equal(t, 4, s.NumberOfInstallments)
	assert.Equal(t, 14, s.InstallmentIntervalDays)
	assert.True(t, s.IsPaymentOnTime)
	assert.True(t, s.OutstandingBalance.Equal(decimal.NewFromInt(75)))
}

func TestRefund_RecordsClockTime(t *testing.T) {
	refund := NewRefund("key-1", decimal.NewFromInt(50), fixedClock())

	assert.Equal(t, "key-1", refund.IdempotencyKey)
	assert.Equal(t, testOrigination, refund.Date)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(50)))
}
