// Package status provides the HTTP status endpoint of a running poller.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/brianly1003/sfpoll/internal/adapters/journal"
	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/brianly1003/sfpoll/internal/poller"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PollerState is the part of the poller the endpoint reports on and controls.
type PollerState interface {
	Stats() poller.Stats
	IsRunning() bool
	Stop()
}

// History provides recent processing records.
type History interface {
	Recent(ctx context.Context, q journal.Query) ([]domain.ProcessingRecord, error)
}

// Response is the body of GET /api/status.
type Response struct {
	Running  bool         `json:"running"`
	Busy     bool         `json:"busy"`
	Stopped  bool         `json:"stopped"`
	InputDir string       `json:"input_dir"`
	Stats    poller.Stats `json:"stats"`
}

const defaultHistoryLimit = 50

// Server serves the status API.
type Server struct {
	addr     string
	inputDir string
	poller   PollerState
	history  History

	control *rateLimiter

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a status server. history may be nil when the journal is
// disabled.
func NewServer(addr, inputDir string, p PollerState, history History) *Server {
	return &Server{
		addr:     addr,
		inputDir: inputDir,
		poller:   p,
		history:  history,
		control:  newRateLimiter(DefaultControlRequests, DefaultControlWindow),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/api/stop", limitRequests(s.control, http.HandlerFunc(s.handleStop))).Methods(http.MethodPost)
	router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)

	return router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("status server started")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server error")
		}
	}()

	return nil
}

// Addr returns the bound address, which differs from the configured one
// when port 0 was requested.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.poller.Stats()
	writeJSON(w, http.StatusOK, Response{
		Running:  s.poller.IsRunning(),
		Busy:     stats.Busy,
		Stopped:  stats.Stopped,
		InputDir: s.inputDir,
		Stats:    stats,
	})
}

// handleStop handles POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.poller.IsRunning() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "poller is not running"})
		return
	}

	log.Info().Str("remote", r.RemoteAddr).Msg("stop requested via status endpoint")
	s.poller.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// handleHistory handles GET /api/history?limit=&outcome=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal is disabled"})
		return
	}

	q := journal.Query{Limit: defaultHistoryLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("outcome"); v != "" {
		switch outcome := domain.Outcome(v); outcome {
		case domain.OutcomeProcessed, domain.OutcomeFailed, domain.OutcomeExpired:
			q.Outcome = outcome
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown outcome " + v})
			return
		}
	}

	records, err := s.history.Recent(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("failed to read history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []domain.ProcessingRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
