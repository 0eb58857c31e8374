// Package healthserver starts the thin liveness/status HTTP endpoint
// spec.md §5 expects to exist alongside a long-running orchestrator or
// backfill job. Grounded on the go-chi + go-chi/cors router stack every
// sibling service (kelly-calculator, bot-service, api-gateway) builds its
// main() around, trimmed to two routes: this is a probe, not a dashboard.
package healthserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fortuna/mlbedge/internal/store"
)

// RunStatus is the orchestrator's last-known-state snapshot, served at
// /status. It is overwritten wholesale on every stage transition rather
// than mutated field by field, so a reader never observes a half-updated
// struct.
type RunStatus struct {
	Stage       string     `json:"stage"`
	GameDate    string     `json:"game_date,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Err         string     `json:"error,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
}

// Server exposes /healthz (DB reachability) and /status (last orchestrator
// run state) over HTTP. The zero value is not usable; build one with New.
type Server struct {
	st     *store.Store
	http   *http.Server

	mu     sync.RWMutex
	status RunStatus
}

// New builds a Server bound to addr (":PORT"). st may be nil — /healthz
// then reports "ok" without a DB round trip, matching the embedded-SQLite
// no-database-to-ping mode.
func New(addr string, st *store.Store) *Server {
	s := &Server{st: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// SetStatus replaces the status snapshot served at /status. Called by the
// orchestrator on every stage transition (start, each pipeline step,
// completion or failure).
func (s *Server) SetStatus(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Start runs the server in a background goroutine and returns immediately.
// Bind errors other than a clean Shutdown are logged, not returned, since
// the health endpoint is a convenience probe — a failure to bind it should
// never abort the orchestrator run it's reporting on.
func (s *Server) Start() {
	go func() {
		log.Printf("✓ health endpoint listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ health endpoint error: %v", err)
		}
	}()
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.st != nil && s.st.DB != nil {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.st.DB.PingContext(pingCtx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "mlbedge",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	respondJSON(w, http.StatusOK, status)
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
