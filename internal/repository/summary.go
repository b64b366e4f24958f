package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splitpay/backend/internal/domain"
)

// SummaryRepository persists the denormalized plan_summaries read model.
type SummaryRepository struct {
	db *pgxpool.Pool
}

func NewSummaryRepository(db *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert writes the plan's current snapshot, replacing any previous one.
func (r *SummaryRepository) Upsert(ctx context.Context, s domain.PlanSummary) error {
	query := `
		INSERT INTO plan_summaries (id, user_id, total_amount_due, origination_date, installment_count, interval_days, is_payment_on_time, outstanding_balance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE
		SET is_payment_on_time = EXCLUDED.is_payment_on_time,
		    outstanding_balance = EXCLUDED.outstanding_balance,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.TotalAmountDue, s.OriginationDate,
		s.NumberOfInstallments, s.InstallmentIntervalDays,
		s.IsPaymentOnTime, s.OutstandingBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert plan summary: %w", err)
	}
	return nil
}

// GetPaymentPlansByUserID returns all plan summaries for a user.
func (r *SummaryRepository) GetPaymentPlansByUserID(ctx context.Context, userID uuid.UUID) ([]domain.PlanSummary, error) {
	query := `
		SELECT id, user_id, total_amount_due, origination_date, installment_count, interval_days, is_payment_on_time, outstanding_balance
		FROM plan_summaries WHERE user_id = $1 ORDER BY origination_date
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.PlanSummary
	for rows.Next() {
		var s domain.PlanSummary
		err := rows.Scan(
			&s.ID, &s.UserID, &s.TotalAmountDue, &s.OriginationDate,
			&s.NumberOfInstallments, &s.InstallmentIntervalDays,
			&s.IsPaymentOnTime, &s.OutstandingBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan summaries: %w", err)
	}
	return summaries, nil
}
