package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxDocumentSize bounds mount request bodies.
const maxDocumentSize = 1 << 20

// Server exposes the roots of a session.Manager over HTTP.
type Server struct {
	Manager  *session.Manager
	Registry *registry.Registry
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics serves gatherer at /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger configures request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// DispatchRequest is the body of POST /roots/{id}/dispatch.
type DispatchRequest struct {
	Node    int    `json:"node"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// NewHandler creates the HTTP handler for manager. Documents posted to
// /roots/{id} are decoded against reg.
func NewHandler(manager *session.Manager, reg *registry.Registry, opts ...Option) http.Handler {
	s := &Server{
		Manager:  manager,
		Registry: reg,
		Streams:  NewStreamManager(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/roots", func(r chi.Router) {
		r.Get("/", s.ListRoots)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.Mount)
			r.Get("/", s.GetRoot)
			r.Delete("/", s.DeleteRoot)
			r.Get("/graph", s.GetGraph)
			r.Get("/markup", s.GetMarkup)
			r.Post("/dispatch", s.Dispatch)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	var components []string
	var schemas map[string]schema.Schema
	if s.Registry != nil {
		components = s.Registry.Components()
		schemas = s.Registry.Schemas()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app":        "arbor-http",
		"version":    strings.TrimSpace(arbor.Version),
		"components": components,
		"schemas":    schemas,
	})
}

// ListRoots handles GET /roots.
func (s *Server) ListRoots(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Manager.List(r.Context())
	if err != nil {
		s.fail(w, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// Mount handles PUT /roots/{id}. The body is a YAML or JSON document.
func (s *Server) Mount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Mount: Invalid request body", "err", err)
		return
	}

	el, err := dsl.Decode(body, s.Registry)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid document: %v", err), http.StatusBadRequest)
		s.logger.Warn("Mount: Invalid document", "root", id, "err", err)
		return
	}

	snap, err := s.Manager.Render(r.Context(), id, el)
	if err != nil {
		s.fail(w, "Mount", err)
		return
	}
	s.broadcast(id, snap)
	writeJSON(w, http.StatusOK, snap)
}

// GetRoot handles GET /roots/{id}.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetRoot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteRoot handles DELETE /roots/{id}.
func (s *Server) DeleteRoot(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeleteRoot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /roots/{id}/graph and returns a Mermaid flowchart.
// ?effects=true colors nodes by the effect of the last pass.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetGraph", err)
		return
	}
	q := r.URL.Query()
	out := graph.GenerateMermaid(snap, graph.Options{
		Effects: q.Get("effects") == "true",
		Props:   q.Get("props") == "true",
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, out)
}

// GetMarkup handles GET /roots/{id}/markup for hosts that can print themselves.
func (s *Server) GetMarkup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	root, ok := s.Manager.Root(id)
	if !ok {
		s.fail(w, "GetMarkup", fmt.Errorf("%w: %s", domain.ErrRootNotFound, id))
		return
	}
	m, ok := root.Host.(interface{ Markup() string })
	if !ok {
		http.Error(w, "Host does not render markup", http.StatusNotImplemented)
		return
	}

	var out string
	// Read under the root lock so a concurrent commit is not observed halfway.
	err := s.Manager.WithLock(r.Context(), id, func(context.Context) error {
		out = m.Markup()
		return nil
	})
	if err != nil {
		s.fail(w, "GetMarkup", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, out)
}

// Dispatch handles POST /roots/{id}/dispatch.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Dispatch: Invalid request body", "err", err)
		return
	}
	if body.Event == "" {
		http.Error(w, "event is required", http.StatusBadRequest)
		return
	}

	snap, err := s.Manager.Dispatch(r.Context(), id, body.Node, body.Event, body.Payload)
	if err != nil {
		s.fail(w, "Dispatch", err)
		return
	}
	s.broadcast(id, snap)
	writeJSON(w, http.StatusOK, snap)
}

// SubscribeEvents handles GET /roots/{id}/events (SSE). Every settled
// snapshot of the root is sent as a data frame.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: Subscribing to root updates", "root", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "root", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcast(id string, snap *domain.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Snapshot encode failed", "root", id, "err", err)
		return
	}
	s.Streams.Broadcast(id, string(payload))
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRootNotFound), errors.Is(err, domain.ErrNotMounted):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownComponent):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // root id -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Subscribers returns the number of open streams for id.
func (sm *StreamManager) Subscribers(id string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[id])
}

func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "root", id)
		}
	}
}
