package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
	"pockets/internal/services"
)

type recurrenceDTO struct {
	Every string `json:"every"`
	Until string `json:"until,omitempty"`
}

type expenseRequest struct {
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Recurrence  *recurrenceDTO  `json:"recurrence,omitempty"`
}

type expensePatchRequest struct {
	CategoryID  *string          `json:"category_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *string          `json:"date,omitempty"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
	CreatedBy   string          `json:"created_by"`
	Recurrence  *recurrenceDTO  `json:"recurrence,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedBy:   e.CreatedBy,
	}
	if e.Recurrence != nil {
		resp.Recurrence = &recurrenceDTO{Every: string(e.Recurrence.Every)}
		if !e.Recurrence.Until.IsZero() {
			resp.Recurrence.Until = e.Recurrence.Until.String()
		}
	}
	return resp
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date, err := core.ParseLocalDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expense := core.Expense{
		GroupID:     r.PathValue("id"),
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
	}
	if req.Recurrence != nil {
		recurrence := &core.Recurrence{Every: core.RepetitionType(req.Recurrence.Every)}
		if req.Recurrence.Until != "" {
			until, err := core.ParseLocalDate(req.Recurrence.Until)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			recurrence.Until = until
		}
		expense.Recurrence = recurrence
	}

	created, err := s.ledger.RecordExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, "invalid month or year", http.StatusBadRequest)
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), r.PathValue("id"), month, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ledger.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patch := services.ExpensePatch{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != nil {
		date, err := core.ParseLocalDate(*req.Date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		patch.Date = &date
	}

	updated, err := s.ledger.UpdateExpense(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
