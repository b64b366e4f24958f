package handler

import (
	"net/http"

	"github.com/splitpay/backend/internal/service"
)

type ReportingHandler struct {
	svc *service.ReportingService
}

func NewReportingHandler(svc *service.ReportingService) *ReportingHandler {
	return &ReportingHandler{svc: svc}
}

// OnTimeRatio handles GET /api/reports/on-time-ratio.
func (h *ReportingHandler) OnTimeRatio(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	ratio, err := h.svc.GetOnTimePaymentRatio(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"onTimePaymentRatio": ratio})
}

// OutstandingBalance handles GET /api/reports/outstanding-balance.
func (h *ReportingHandler) OutstandingBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	total, err := h.svc.GetOutstandingBalances(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"outstandingBalance": total})
}
