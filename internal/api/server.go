// Package api serves read access to indexed entities, service status and
// prometheus metrics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"core-indexer/internal/domain"
	"core-indexer/internal/observability"
	"core-indexer/internal/storage"
	"core-indexer/internal/verification"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// AddressCounter reports how many contracts are being indexed.
type AddressCounter interface {
	Len() int
}

// Options configures a Server.
type Options struct {
	Store   storage.EntityStore
	Tracked AddressCounter // optional
	Logger  *zap.Logger
}

// Server handles the HTTP API.
type Server struct {
	store   storage.EntityStore
	tracked AddressCounter
	logger  *zap.Logger
	started time.Time
	report  atomic.Pointer[verification.Report]
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   opts.Store,
		tracked: opts.Tracked,
		logger:  logger,
		started: time.Now(),
	}
}

// SetVerification publishes the latest verification report on /status.
func (s *Server) SetVerification(r *verification.Report) {
	s.report.Store(r)
}

// NewRouter returns the router with every route registered.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/entities", s.HandleKinds).Methods(http.MethodGet)
	r.HandleFunc("/entities/{kind}", s.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/entities/{kind}/{id}", s.HandleGet).Methods(http.MethodGet)
	return r
}

// HandleHealth answers liveness probes.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Cursor       *uint64              `json:"cursor"`
	CursorAt     *time.Time           `json:"cursorAt,omitempty"`
	Tracked      int                  `json:"tracked"`
	Uptime       string               `json:"uptime"`
	Verification *verification.Report `json:"verification,omitempty"`
}

// HandleStatus reports indexing progress.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Verification: s.report.Load(),
	}
	if s.tracked != nil {
		resp.Tracked = s.tracked.Len()
	}
	cursor, err := s.store.GetCursor(r.Context())
	switch {
	case err == nil:
		resp.Cursor = &cursor.Block
		resp.CursorAt = &cursor.UpdatedAt
	case !errors.Is(err, storage.ErrNotFound):
		s.internalError(w, "load cursor", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleKinds lists the entity kinds.
func (s *Server) HandleKinds(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"kinds": domain.Kinds()})
}

// ListResponse is the body of GET /entities/{kind}.
type ListResponse struct {
	Data []json.RawMessage `json:"data"`
	Next string            `json:"next,omitempty"`
}

// HandleList pages through the entities of a kind in id order.
//
// Query parameters:
//   - limit: page size (default 100, max 1000)
//   - after: return ids strictly greater than this one
func (s *Server) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if !domain.IsKind(kind) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown entity kind %q", kind))
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	after := r.URL.Query().Get("after")

	// One extra row tells whether another page follows.
	docs, err := s.store.ListPage(r.Context(), kind, after, limit+1)
	if err != nil {
		s.internalError(w, "list entities", err)
		return
	}

	resp := ListResponse{Data: make([]json.RawMessage, 0, len(docs))}
	if len(docs) > limit {
		docs = docs[:limit]
		resp.Next = docs[limit-1].ID
	}
	for _, doc := range docs {
		resp.Data = append(resp.Data, json.RawMessage(doc.Data))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleGet returns one entity.
func (s *Server) HandleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, id := vars["kind"], vars["id"]
	if !domain.IsKind(kind) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown entity kind %q", kind))
		return
	}
	data, err := s.store.Get(r.Context(), kind, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id))
		return
	}
	if err != nil {
		s.internalError(w, "get entity", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", s)
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("api request failed", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, op+" failed")
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}
