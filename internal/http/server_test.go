package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	coord := services.NewCoordinator()
	ledger := services.NewLedgerService(repo, coord, nil)
	budgets := services.NewBudgetService(repo, coord)
	scheduler := services.NewScheduler(repo, ledger)

	return NewServer(":0", repo, ledger, budgets, scheduler, nil)
}

func doJSON(t *testing.T, srv *Server, method, path, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req.Header.Set(ownerHeader, ownerID)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func createAccount(t *testing.T, srv *Server, ownerID, name, balance string) accountResponse {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/accounts", ownerID, map[string]string{
		"name": name, "type": "current", "balance": balance,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, body %s", rec.Code, rec.Body.String())
	}
	var account accountResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return account
}

func createCategory(t *testing.T, srv *Server, ownerID, name string) categoryResponse {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/categories", ownerID, map[string]string{
		"name": name, "kind": "expense",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d, body %s", rec.Code, rec.Body.String())
	}
	var category categoryResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &category); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	return category
}

func TestOwnerHeaderRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/accounts", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("success = true on rejected request")
	}
	if !strings.Contains(resp.Message, ownerHeader) {
		t.Errorf("message %q does not name the missing header", resp.Message)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	owner := "owner-1"

	account := createAccount(t, srv, owner, "Checking", "1000.00")
	category := createCategory(t, srv, owner, "Groceries")

	// Budget covering March
	rec := doJSON(t, srv, http.MethodPost, "/api/budgets", owner, map[string]string{
		"category_id": category.ID,
		"amount":      "500.00",
		"start_date":  "2024-03-01",
		"end_date":    "2024-03-31",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget status = %d, body %s", rec.Code, rec.Body.String())
	}
	var budget budgetResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &budget); err != nil {
		t.Fatalf("decode budget: %v", err)
	}

	// Expense
	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", owner, map[string]string{
		"account_id":  account.ID,
		"category_id": category.ID,
		"kind":        "expense",
		"amount":      "50.00",
		"note":        "weekly shop",
		"date":        "2024-03-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body.String())
	}
	var entry entryResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Amount.String() != "50.00" {
		t.Errorf("entry amount = %s, want 50.00", entry.Amount)
	}

	// Balance moved
	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID, owner, nil)
	var gotAccount accountResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &gotAccount); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if gotAccount.Balance.String() != "950.00" {
		t.Errorf("balance = %s, want 950.00", gotAccount.Balance)
	}

	// Budget tracked, remaining derived
	rec = doJSON(t, srv, http.MethodGet, "/api/budgets/"+budget.ID, owner, nil)
	var gotBudget budgetResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &gotBudget); err != nil {
		t.Fatalf("decode budget: %v", err)
	}
	if gotBudget.CurrentExpense.String() != "50.00" {
		t.Errorf("current_expense = %s, want 50.00", gotBudget.CurrentExpense)
	}
	if gotBudget.Remaining.String() != "450.00" {
		t.Errorf("remaining = %s, want 450.00", gotBudget.Remaining)
	}

	// Delete reverts
	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+entry.ID, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID, owner, nil)
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &gotAccount); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if gotAccount.Balance.String() != "1000.00" {
		t.Errorf("balance after delete = %s, want 1000.00", gotAccount.Balance)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	owner := "owner-1"
	account := createAccount(t, srv, owner, "Checking", "0.00")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{
			name:   "validation error is 422",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: map[string]string{
				"account_id": account.ID,
				"kind":       "expense",
				"amount":     "-5.00",
				"date":       "2024-03-01",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown reference is 404",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: map[string]string{
				"account_id": "nope",
				"kind":       "expense",
				"amount":     "5.00",
				"date":       "2024-03-01",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown resource is 404",
			method:     http.MethodGet,
			path:       "/api/transactions/nope",
			body:       nil,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed body is 400",
			method:     http.MethodPost,
			path:       "/api/accounts",
			body:       map[string]any{"name": "x", "type": "current", "unknown_field": 1},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, tt.method, tt.path, owner, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp := decodeResponse(t, rec); resp.Success {
				t.Error("success = true on error response")
			}
		})
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	account := createAccount(t, srv, "owner-1", "Checking", "100.00")

	rec := doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID, "owner-2", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner get status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts", "owner-2", nil)
	var accounts []accountResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("owner-2 sees %d accounts, want 0", len(accounts))
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)
	owner := "owner-1"
	account := createAccount(t, srv, owner, "Checking", "1000.00")

	rec := doJSON(t, srv, http.MethodPost, "/api/recurring", owner, map[string]string{
		"account_id": account.ID,
		"kind":       "expense",
		"amount":     "80.00",
		"note":       "rent",
		"frequency":  "monthly",
		"start_date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create template status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Dry run decides but writes nothing
	rec = doJSON(t, srv, http.MethodPost, "/api/recurring/sweep", owner, map[string]any{
		"as_of": "2024-01-01", "dry_run": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("dry sweep status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report services.SweepReport
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Processed != 1 || !report.DryRun {
		t.Fatalf("dry report = %+v, want 1 would-process", report)
	}

	// Real sweep materializes and moves the balance
	rec = doJSON(t, srv, http.MethodPost, "/api/recurring/sweep", owner, map[string]any{
		"as_of": "2024-01-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Processed != 1 {
		t.Fatalf("report = %+v, want 1 processed", report)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID, owner, nil)
	var gotAccount accountResponse
	if err := json.Unmarshal(decodeResponse(t, rec).Data, &gotAccount); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if gotAccount.Balance.String() != "920.00" {
		t.Errorf("balance after sweep = %s, want 920.00", gotAccount.Balance)
	}
}
