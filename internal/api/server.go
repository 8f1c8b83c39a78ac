// Package api exposes the timeline and reservation workflow to the admin UI
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/audit"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/config"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/posadaapi"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/view"
)

// HTTPServer serves the back-office API.
type HTTPServer struct {
	cfg        *config.Config
	controller *timeline.Controller
	client     *posadaapi.Client
	audit      *audit.Store // optional
	logger     *zerolog.Logger
	server     *http.Server

	mu      sync.Mutex
	details map[int64]*view.Detail // open reservation popups by booking ID
}

// NewHTTPServer wires the API routes. audit may be nil when disabled.
func NewHTTPServer(cfg *config.Config, controller *timeline.Controller, client *posadaapi.Client, auditStore *audit.Store, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:        cfg,
		controller: controller,
		client:     client,
		audit:      auditStore,
		logger:     logger,
		details:    make(map[int64]*view.Detail),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms", s.handleRooms)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/reservations", s.handleCreateReservation)
	mux.HandleFunc("/api/reservations/", s.handleReservation)
	mux.HandleFunc("/api/audit/recent", s.handleAuditRecent)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.withRequestLog(s.withAPIKey(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the configured root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe runs the server until it fails or is shut down.
func (s *HTTPServer) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withAPIKey rejects requests without the configured key. Health stays open.
func (s *HTTPServer) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey != "" && r.URL.Path != "/healthz" {
			if r.Header.Get("x-api-key") != s.cfg.Server.APIKey {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestLog tags every request with an ID and logs it on completion.
func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("x-request-id", reqID)
		next.ServeHTTP(rec, r)

		s.logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
