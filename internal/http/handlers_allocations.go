package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pockets/internal/services"
)

type allocationRequest struct {
	CategoryID string          `json:"category_id"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
}

func (a allocationRequest) toUpsert() services.AllocationUpsert {
	return services.AllocationUpsert{
		CategoryID: a.CategoryID,
		Month:      a.Month,
		Year:       a.Year,
		Amount:     a.Amount,
	}
}

type allocationResponse struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	UserID     string          `json:"user_id,omitempty"`
	Allocated  decimal.Decimal `json:"allocated"`
	Spent      decimal.Decimal `json:"spent"`
}

type allocationViewResponse struct {
	allocationResponse

	Remaining             decimal.Decimal `json:"remaining"`
	Status                string          `json:"status"`
	RecommendedDailySpend decimal.Decimal `json:"recommended_daily_spend"`
	AverageDailySpend     decimal.Decimal `json:"average_daily_spend"`
	DaysRemaining         int             `json:"days_remaining"`
	DaysElapsed           int             `json:"days_elapsed"`
}

func (s *Server) handleUpsertAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	allocation, err := s.budgets.Upsert(r.Context(), r.PathValue("id"), req.toUpsert())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocationResponse{
		ID:         allocation.ID,
		CategoryID: allocation.CategoryID,
		Month:      allocation.Month,
		Year:       allocation.Year,
		UserID:     allocation.UserID,
		Allocated:  allocation.Allocated,
		Spent:      allocation.Spent,
	})
}

func (s *Server) handleBatchUpsertAllocations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []allocationRequest `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]services.AllocationUpsert, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.toUpsert())
	}

	applied, err := s.budgets.BatchUpsert(r.Context(), r.PathValue("id"), items)

	out := make([]allocationResponse, 0, len(applied))
	for _, a := range applied {
		out = append(out, allocationResponse{
			ID:         a.ID,
			CategoryID: a.CategoryID,
			Month:      a.Month,
			Year:       a.Year,
			UserID:     a.UserID,
			Allocated:  a.Allocated,
			Spent:      a.Spent,
		})
	}

	// Partial success reports both the applied items and the failures.
	resp := struct {
		Applied []allocationResponse `json:"applied"`
		Errors  string               `json:"errors,omitempty"`
	}{Applied: out}
	status := http.StatusOK
	if err != nil {
		resp.Errors = err.Error()
		if len(applied) == 0 {
			writeDomainError(w, err)
			return
		}
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetAllocations(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, "invalid month or year", http.StatusBadRequest)
		return
	}

	views, err := s.budgets.GetAllocations(r.Context(), r.PathValue("id"), month, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]allocationViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, allocationViewResponse{
			allocationResponse: allocationResponse{
				ID:         v.Allocation.ID,
				CategoryID: v.Allocation.CategoryID,
				Month:      v.Allocation.Month,
				Year:       v.Allocation.Year,
				UserID:     v.Allocation.UserID,
				Allocated:  v.Allocation.Allocated,
				Spent:      v.Allocation.Spent,
			},
			Remaining:             v.Pacing.Remaining,
			Status:                string(v.Pacing.Status),
			RecommendedDailySpend: v.Pacing.RecommendedDailySpend,
			AverageDailySpend:     v.Pacing.AverageDailySpend,
			DaysRemaining:         v.Pacing.DaysRemaining,
			DaysElapsed:           v.Pacing.DaysElapsed,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
