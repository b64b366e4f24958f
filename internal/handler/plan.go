package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitpay/backend/internal/contextkeys"
	"github.com/splitpay/backend/internal/domain"
	"github.com/splitpay/backend/internal/service"
)

type PlanHandler struct {
	svc      *service.PlanService
	validate *validator.Validate
}

func NewPlanHandler(svc *service.PlanService) *PlanHandler {
	return &PlanHandler{svc: svc, validate: validator.New()}
}

// Create handles POST /api/plans.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.CreatePlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		Error(w, domain.ErrBadRequest(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		Error(w, domain.ErrInvalidArgument("amount", req.Amount, "amount must be a decimal number"))
		return
	}

	plan, err := h.svc.CreatePlan(r.Context(), userID, amount, req.InstallmentCount, req.IntervalDays)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, plan.Response())
}

// Get handles GET /api/plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.planFromPath(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, plan.Response())
}

// NextInstallment handles GET /api/plans/{id}/installments/next.
func (h *PlanHandler) NextInstallment(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.planFromPath(w, r)
	if !ok {
		return
	}

	next := plan.NextInstallment()
	if next == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"installment": nil})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"installment": domain.InstallmentResponse{
			ID:      next.ID,
			DueDate: next.DueDate,
			Amount:  next.Amount,
			Status:  next.Status().String(),
		},
	})
}

// MakePayment handles POST /api/plans/{id}/payments.
func (h *PlanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, domain.ErrBadRequest("invalid plan id"))
		return
	}

	var req domain.MakePaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		Error(w, domain.ErrBadRequest(err.Error()))
		return
	}

	installmentID, err := uuid.Parse(req.InstallmentID)
	if err != nil {
		Error(w, domain.ErrInvalidArgument("installmentId", req.InstallmentID, "installmentId must be a UUID"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		Error(w, domain.ErrInvalidArgument("amount", req.Amount, "amount must be a decimal number"))
		return
	}

	if err := h.svc.MakePayment(r.Context(), planID, installmentID, amount); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ApplyRefund handles POST /api/plans/{id}/refunds.
func (h *PlanHandler) ApplyRefund(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, domain.ErrBadRequest("invalid plan id"))
		return
	}

	var req domain.ApplyRefundRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		Error(w, domain.ErrBadRequest(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		Error(w, domain.ErrInvalidArgument("amount", req.Amount, "amount must be a decimal number"))
		return
	}

	refund, cashRefund, err := h.svc.ApplyRefund(r.Context(), planID, req.IdempotencyKey, amount)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, domain.RefundResponse{
		RefundID:         refund.ID,
		CashRefundAmount: cashRefund,
	})
}

func (h *PlanHandler) planFromPath(w http.ResponseWriter, r *http.Request) (*domain.PaymentPlan, bool) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, domain.ErrBadRequest("invalid plan id"))
		return nil, false
	}
	plan, err := h.svc.GetPlan(r.Context(), planID)
	if err != nil {
		Error(w, err)
		return nil, false
	}
	return plan, true
}

// authenticatedUser extracts the JWT subject placed in the context by the
// auth middleware.
func authenticatedUser(r *http.Request) (uuid.UUID, bool) {
	raw, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
