package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pockets/internal/identity"
	"pockets/internal/services"
	"pockets/internal/sheets/memory"
	"pockets/internal/storage"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "pockets.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ids := identity.NewStoreProvider(repo)
	return NewServer(":0", Deps{
		Verifier: identity.NewTokenVerifier(testSecret),
		Registry: services.NewRegistryService(repo, ids),
		Budgets:  services.NewAllocationService(repo, ids),
		Ledger:   services.NewLedgerService(repo, ids, nil),
		Payments: services.NewPaymentsService(repo, ids),
		Reports:  services.NewReportService(repo, ids, memory.New()),
	})
}

func token(t *testing.T, userID, activeGroup string) string {
	t.Helper()
	tok, err := identity.NewTokenVerifier(testSecret).Issue(identity.Principal{
		ID:          userID,
		ActiveGroup: activeGroup,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, s *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/groups", "", map[string]string{"name": "casa"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/groups", "garbage-token", map[string]string{"name": "casa"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestGroupAndBudgetFlow(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")

	rec := doJSON(t, s, http.MethodPost, "/groups", alice, map[string]string{"name": "casa"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status = %d, body %s", rec.Code, rec.Body)
	}
	var group struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &group); err != nil {
		t.Fatalf("decode group: %v", err)
	}

	aliceActive := token(t, "alice", group.ID)
	rec = doJSON(t, s, http.MethodPost, "/groups/"+group.ID+"/categories", aliceActive,
		map[string]string{"name": "Groceries", "scope": "shared"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status = %d, body %s", rec.Code, rec.Body)
	}
	var category struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &category); err != nil {
		t.Fatalf("decode category: %v", err)
	}

	rec = doJSON(t, s, http.MethodPut, "/groups/"+group.ID+"/allocations", aliceActive,
		map[string]any{"category_id": category.ID, "month": 3, "year": 2025, "amount": "400"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert allocation: status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodPost, "/groups/"+group.ID+"/expenses", aliceActive,
		map[string]any{"category_id": category.ID, "amount": "65.50", "description": "weekly shop", "date": "2025-03-08"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record expense: status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet,
		fmt.Sprintf("/groups/%s/allocations?month=3&year=2025", group.ID), aliceActive, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get allocations: status = %d, body %s", rec.Code, rec.Body)
	}
	var views []struct {
		Spent     string `json:"spent"`
		Remaining string `json:"remaining"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode allocations: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d allocations, want 1", len(views))
	}
	if views[0].Spent != "65.5" {
		t.Fatalf("spent = %s, want 65.5", views[0].Spent)
	}
	if views[0].Status != "healthy" {
		t.Fatalf("status = %s, want healthy", views[0].Status)
	}

	// Outsiders are rejected, not shown an empty list.
	mallory := token(t, "mallory", "")
	rec = doJSON(t, s, http.MethodGet, "/groups/"+group.ID+"/allocations", mallory, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider: status = %d, want 403", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")

	rec := doJSON(t, s, http.MethodGet, "/expenses/no-such-id", alice, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing expense: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/groups", alice, map[string]int{"name_typo": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d, want 400", rec.Code)
	}
}
