package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pockets/internal/core"
)

type groupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryRequest struct {
	Name      string          `json:"name"`
	Scope     string          `json:"scope"`
	LimitHint decimal.Decimal `json:"limit_hint,omitempty"`
}

type categoryResponse struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	Name      string          `json:"name"`
	Scope     string          `json:"scope"`
	OwnerID   string          `json:"owner_id,omitempty"`
	LimitHint decimal.Decimal `json:"limit_hint"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		GroupID:   c.GroupID,
		Name:      c.Name,
		Scope:     string(c.Scope),
		OwnerID:   c.OwnerID,
		LimitHint: c.LimitHint,
	}
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	group, err := s.registry.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{ID: group.ID, Name: group.Name, CreatedAt: group.CreatedAt})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.registry.AddMember(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.LeaveGroup(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	category := core.Category{
		GroupID:   r.PathValue("id"),
		Name:      req.Name,
		Scope:     core.Scope(req.Scope),
		LimitHint: req.LimitHint,
	}

	created, err := s.registry.CreateCategory(r.Context(), category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.registry.ListCategories(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
