package http

import (
	"net/http"
	"time"

	"github.com/avatar25/ArthaOS/internal/engine"
	"github.com/avatar25/ArthaOS/internal/log"
)

type Server struct {
	engine *engine.Engine
	logger *log.Logger
}

// NewServer wires the JSON caller surface over the engine.
func NewServer(addr string, eng *engine.Engine, logger *log.Logger) *http.Server {
	s := &Server{
		engine: eng,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /api/import", s.withLogging(s.handleImportCSV))
	mux.HandleFunc("GET /api/inbox", s.withLogging(s.handleListInbox))
	mux.HandleFunc("POST /api/inbox/{tempId}/category", s.withLogging(s.handleSetInboxCategory))
	mux.HandleFunc("POST /api/inbox/commit", s.withLogging(s.handleCommitInbox))
	mux.HandleFunc("GET /api/summary", s.withLogging(s.handleMonthlySummary))
	mux.HandleFunc("GET /api/networth", s.withLogging(s.handleNetWorthCurve))
	mux.HandleFunc("GET /api/settings", s.withLogging(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withLogging(s.handleSetSetting))
	mux.HandleFunc("GET /api/budgets", s.withLogging(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withLogging(s.handleSetBudget))

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		s.logger.InfoContext(r.Context(), "Request handled",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, recorder.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}
