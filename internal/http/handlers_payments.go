package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
)

type templateRequest struct {
	Name       string          `json:"name"`
	AmountHint decimal.Decimal `json:"amount_hint"`
}

type templateResponse struct {
	ID         string          `json:"id"`
	GroupID    string          `json:"group_id"`
	Name       string          `json:"name"`
	AmountHint decimal.Decimal `json:"amount_hint"`
	Active     bool            `json:"active"`
}

type taskResponse struct {
	ID          string          `json:"id"`
	TemplateID  string          `json:"template_id"`
	GroupID     string          `json:"group_id"`
	Completed   bool            `json:"completed"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	PaidDate    string          `json:"paid_date,omitempty"`
	CompletedBy string          `json:"completed_by,omitempty"`
	ExpenseID   string          `json:"expense_id,omitempty"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := s.payments.CreateTemplate(r.Context(), core.PaymentTemplate{
		GroupID:    r.PathValue("id"),
		Name:       req.Name,
		AmountHint: req.AmountHint,
		Active:     true,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateResponse{
		ID:         created.ID,
		GroupID:    created.GroupID,
		Name:       created.Name,
		AmountHint: created.AmountHint,
		Active:     created.Active,
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.payments.ListTemplates(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateResponse{
			ID:         t.ID,
			GroupID:    t.GroupID,
			Name:       t.Name,
			AmountHint: t.AmountHint,
			Active:     t.Active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetTemplateActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.payments.SetTemplateActive(r.Context(), r.PathValue("id"), req.Active); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.payments.ListTasks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp := taskResponse{
			ID:          t.ID,
			TemplateID:  t.TemplateID,
			GroupID:     t.GroupID,
			Completed:   t.Completed,
			PaidAmount:  t.PaidAmount,
			CompletedBy: t.CompletedBy,
			ExpenseID:   t.ExpenseID,
		}
		if !t.PaidDate.IsZero() {
			resp.PaidDate = t.PaidDate.String()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    decimal.Decimal `json:"amount"`
		PaidOn    string          `json:"paid_on"`
		ExpenseID string          `json:"expense_id,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	paidOn, err := core.ParseLocalDate(req.PaidOn)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.payments.CompleteTask(r.Context(), r.PathValue("id"), req.Amount, paidOn, req.ExpenseID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, "no report writer configured", http.StatusBadRequest)
		return
	}

	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, "invalid month or year", http.StatusBadRequest)
		return
	}

	report, err := s.reports.ExportMonthlyReport(r.Context(), r.PathValue("id"), month, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group_id": report.GroupID,
		"month":    report.Month,
		"year":     report.Year,
		"rows":     len(report.Rows),
	})
}
