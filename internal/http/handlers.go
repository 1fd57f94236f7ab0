package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avatar25/ArthaOS/internal/core"
)

// Statement exports are small; anything past this is not a CSV.
const maxImportBytes = 16 << 20

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	// Read one byte past the cap so an oversized upload is rejected
	// outright instead of staging a silently truncated statement.
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read import body", "error", err)
		respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(raw) > maxImportBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "import exceeds 16 MiB")
		return
	}

	items, err := s.engine.ImportCSV(r.Context(), raw)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import failed", "error", err)
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.ListInbox(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Inbox fetch failed", "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleSetInboxCategory(w http.ResponseWriter, r *http.Request) {
	tempID := r.PathValue("tempId")

	var payload struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	category := strings.TrimSpace(payload.Category)
	if category == "" {
		respondError(w, http.StatusUnprocessableEntity, "category must not be empty")
		return
	}

	result, err := s.engine.SetInboxCategory(r.Context(), tempID, category)
	if err != nil {
		slog.ErrorContext(r.Context(), "Set category failed", "temp_id", tempID, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommitInbox(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.CommitInbox(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Commit failed", "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"committedCount": count})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	if !monthPattern.MatchString(month) {
		respondError(w, http.StatusUnprocessableEntity, "month must be yyyy-mm")
		return
	}

	summary, err := s.engine.MonthlySummary(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary failed", "month", month, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleNetWorthCurve(w http.ResponseWriter, r *http.Request) {
	curve, err := s.engine.NetWorthCurve(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Net-worth curve failed", "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, curve)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.engine.AppSettings(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Settings fetch failed", "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Key) == "" {
		respondError(w, http.StatusUnprocessableEntity, "key must not be empty")
		return
	}

	if err := s.engine.SetSetting(r.Context(), payload.Key, payload.Value); err != nil {
		slog.ErrorContext(r.Context(), "Setting update failed", "key", payload.Key, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.engine.Budgets(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget fetch failed", "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Category string          `json:"category"`
		Cap      decimal.Decimal `json:"cap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget := core.Budget{Category: strings.TrimSpace(payload.Category), Cap: payload.Cap}
	if err := budget.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.engine.SetBudget(r.Context(), budget); err != nil {
		slog.ErrorContext(r.Context(), "Budget update failed", "category", budget.Category, "error", err)
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
