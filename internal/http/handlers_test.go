package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avatar25/ArthaOS/internal/core"
	"github.com/avatar25/ArthaOS/internal/engine"
	"github.com/avatar25/ArthaOS/internal/log"
	"github.com/avatar25/ArthaOS/internal/memory"
	"github.com/avatar25/ArthaOS/internal/storage"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	repo, err := storage.NewSQLiteRepository(
		filepath.Join(t.TempDir(), "vault.db"),
		[32]byte{},
		logger,
	)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	mem := memory.Load(context.Background(), repo, logger)
	eng := engine.New(repo, mem, logger, 4)
	return NewServer(":0", eng, logger).Handler
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestImportEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/import",
		"Date,Description,Amount\n2026-01-05,Coffee,-4.50\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var items []core.InboxItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 || items[0].Flow != core.Debit {
		t.Fatalf("unexpected payload: %+v", items)
	}
}

func TestImportEndpointNoUsableRows(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/import", "Date,Description,Amount\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("expected human-readable failure message")
	}
}

func TestImportEndpointRejectsOversizedBody(t *testing.T) {
	handler := newTestServer(t)

	body := "Date,Description,Amount\n2026-01-05," +
		strings.Repeat("x", maxImportBytes) + ",-1\n"
	rec := doRequest(t, handler, http.MethodPost, "/api/import", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/inbox", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list inbox: %d", rec.Code)
	}
	var items []core.InboxItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected import must stage nothing, got %d rows", len(items))
	}
}

func TestImportEndpointMissingColumn(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/import", "Description,Amount\nCoffee,-4.50\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestInboxFlowEndpoints(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/import",
		"Date,Description,Amount\n2026-01-05,Coffee,-4.50\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d", rec.Code)
	}
	var items []core.InboxItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, handler, http.MethodPost,
		"/api/inbox/"+items[0].TempID+"/category", `{"category":"Dining"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set category: %d: %s", rec.Code, rec.Body.String())
	}
	var result core.SetCategoryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected applied=true")
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/inbox/unknown/category", `{"category":"Dining"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown id must not be an http error: %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Applied {
		t.Fatalf("expected applied=false")
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/inbox/commit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: %d", rec.Code)
	}
	var commit map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &commit); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if commit["committedCount"] != 1 {
		t.Fatalf("expected committedCount 1, got %d", commit["committedCount"])
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/inbox", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list inbox: %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("inbox must be empty after commit")
	}
}

func TestSummaryEndpointValidation(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/summary?month=garbage", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad month, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/summary?month=2026-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary core.SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Month != "2026-01" || len(summary.Budgets) != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestNetWorthEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/networth", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var curve []core.NetWorthPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &curve); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(curve) != 12 {
		t.Fatalf("expected 12 points, got %d", len(curve))
	}
}

func TestBudgetEndpoints(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/budgets", `{"category":"Travel","cap":400}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/budgets", `{"category":"","cap":400}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty category, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/budgets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list budgets: %d", rec.Code)
	}
	var budgets []core.Budget
	if err := json.Unmarshal(rec.Body.Bytes(), &budgets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(budgets) != 6 {
		t.Fatalf("expected 6 budgets, got %d", len(budgets))
	}
}

func TestSettingsEndpoints(t *testing.T) {
	handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPut, "/api/settings", `{"key":"theme","value":"dark"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set setting: %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPut, "/api/settings", `{"key":"","value":"x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty key, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get settings: %d", rec.Code)
	}
	var settings core.AppSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if settings.Theme != "dark" {
		t.Fatalf("expected dark theme, got %q", settings.Theme)
	}
}
