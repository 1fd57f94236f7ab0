// Package http is the thin JSON surface the shell invokes. Every
// operation yields either a well-formed payload or a human-readable
// failure message.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/avatar25/ArthaOS/internal/csvimport"
	"github.com/avatar25/ArthaOS/internal/vault"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondFailure maps a core failure to a status code: import problems
// are the caller's fault, a closed vault is a 503, everything else is a
// storage-level 500.
func respondFailure(w http.ResponseWriter, err error) {
	var missing *csvimport.MissingColumnError
	switch {
	case errors.Is(err, csvimport.ErrNoUsableRows), errors.As(err, &missing):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, vault.ErrVaultUnavailable), errors.Is(err, vault.ErrKeyUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
