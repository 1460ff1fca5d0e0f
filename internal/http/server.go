// Package http exposes the ledger as a JSON API. Requests authenticate with
// a bearer token; the principal it names is attached to the request context
// and all authorization happens in the services.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pockets/internal/identity"
	"pockets/internal/services"
)

type Server struct {
	http.Server

	verifier *identity.TokenVerifier
	registry *services.RegistryService
	budgets  *services.AllocationService
	ledger   *services.LedgerService
	payments *services.PaymentsService
	reports  *services.ReportService
}

// Deps carries the services the server routes to. Reports may be nil when no
// report writer is configured; its endpoint then responds 400.
type Deps struct {
	Verifier *identity.TokenVerifier
	Registry *services.RegistryService
	Budgets  *services.AllocationService
	Ledger   *services.LedgerService
	Payments *services.PaymentsService
	Reports  *services.ReportService
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		verifier: deps.Verifier,
		registry: deps.Registry,
		budgets:  deps.Budgets,
		ledger:   deps.Ledger,
		payments: deps.Payments,
		reports:  deps.Reports,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)

	mux.HandleFunc("POST /groups", s.authed(s.handleCreateGroup))
	mux.HandleFunc("POST /groups/{id}/members", s.authed(s.handleAddMember))
	mux.HandleFunc("DELETE /groups/{id}/members/me", s.authed(s.handleLeaveGroup))

	mux.HandleFunc("POST /groups/{id}/categories", s.authed(s.handleCreateCategory))
	mux.HandleFunc("GET /groups/{id}/categories", s.authed(s.handleListCategories))
	mux.HandleFunc("DELETE /categories/{id}", s.authed(s.handleDeleteCategory))

	mux.HandleFunc("PUT /groups/{id}/allocations", s.authed(s.handleUpsertAllocation))
	mux.HandleFunc("PUT /groups/{id}/allocations/batch", s.authed(s.handleBatchUpsertAllocations))
	mux.HandleFunc("GET /groups/{id}/allocations", s.authed(s.handleGetAllocations))

	mux.HandleFunc("POST /groups/{id}/expenses", s.authed(s.handleRecordExpense))
	mux.HandleFunc("GET /groups/{id}/expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("GET /expenses/{id}", s.authed(s.handleGetExpense))
	mux.HandleFunc("PATCH /expenses/{id}", s.authed(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.HandleFunc("POST /groups/{id}/templates", s.authed(s.handleCreateTemplate))
	mux.HandleFunc("GET /groups/{id}/templates", s.authed(s.handleListTemplates))
	mux.HandleFunc("PATCH /templates/{id}", s.authed(s.handleSetTemplateActive))
	mux.HandleFunc("GET /groups/{id}/tasks", s.authed(s.handleListTasks))
	mux.HandleFunc("POST /tasks/{id}/complete", s.authed(s.handleCompleteTask))

	mux.HandleFunc("POST /groups/{id}/reports", s.authed(s.handleExportReport))

	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authed verifies the bearer token, attaches the principal and logs the
// request.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		principal, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := identity.WithPrincipal(r.Context(), principal)
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"user_id", principal.ID,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// monthYearParams reads the optional month and year query parameters. Both
// default to zero, which the services resolve to the current month.
func monthYearParams(r *http.Request) (month, year int, err error) {
	q := r.URL.Query()
	if v := q.Get("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, err
		}
	}
	if v := q.Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, err
		}
	}
	return month, year, nil
}
