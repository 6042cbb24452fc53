// Package httpapi exposes the suggestion model over HTTP.
//
// The surface is a small JSON API plus a websocket push channel:
//
//	GET  /v1/items             ranked items within the display budget
//	GET  /v1/items/all         every buffered item, unranked included
//	GET  /v1/items/{category}  one category's raw buffer (debugging aid)
//	GET  /v1/fresh             whether the current cycle's data is fresh
//	POST /v1/fetch             trigger a fetch cycle, respond on completion
//	POST /v1/items/remove      dismiss an item by key
//	GET  /v1/prefs             per-category enable flags
//	PUT  /v1/prefs/{category}  toggle one category
//	GET  /v1/watch             websocket: ranked list after each fetch cycle
//	GET  /health
//
// Handlers hold no state of their own; everything delegates to the
// suggestion model and the preference store.
package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
	"github.com/kestrelsoft/glint/internal/prefs"
	"github.com/kestrelsoft/glint/internal/suggest"
)

const maxBodyBytes = 1 << 20

// Server serves the suggestion API. It implements http.Handler.
type Server struct {
	model   *suggest.Model
	prefs   *prefs.Store
	logger  *zap.Logger
	handler http.Handler

	watchMu  sync.Mutex
	watchers map[string]*watchClient
}

var _ http.Handler = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server over the given model and preference store.
func NewServer(model *suggest.Model, prefStore *prefs.Store, opts ...Option) *Server {
	s := &Server{
		model:    model,
		prefs:    prefStore,
		logger:   zap.NewNop(),
		watchers: make(map[string]*watchClient),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/items", s.handleItems)
	mux.HandleFunc("GET /v1/items/all", s.handleItemsAll)
	mux.HandleFunc("GET /v1/items/{category}", s.handleItemsCategory)
	mux.HandleFunc("GET /v1/fresh", s.handleFresh)
	mux.HandleFunc("POST /v1/fetch", s.handleFetch)
	mux.HandleFunc("POST /v1/items/remove", s.handleRemove)
	mux.HandleFunc("GET /v1/prefs", s.handlePrefsGet)
	mux.HandleFunc("PUT /v1/prefs/{category}", s.handlePrefsSet)
	mux.HandleFunc("GET /v1/watch", s.handleWatch)
	s.handler = s.logRequests(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse{Items: Render(s.model.GetItemsForDisplay())})
}

func (s *Server) handleItemsAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse{Items: Render(s.model.GetAllItems())})
}

// handleItemsCategory exposes one category's raw buffer, removal filter and
// preferences not applied. Meant for poking at a live daemon, not for
// frontends.
func (s *Server) handleItemsCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := item.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown category")
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: Render(s.model.ItemsForCategory(c))})
}

func (s *Server) handleFresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"fresh": s.model.IsDataFresh()})
}

// handleFetch runs a fetch cycle and responds with the display list current
// at completion. The model bounds the cycle with its own deadline; the
// request context covers client disconnect and server shutdown.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostLogin bool `json:"post_login"`
	}
	if !s.decodeJSONBody(w, r, &req, true) {
		return
	}

	done := make(chan struct{})
	s.model.RequestDataFetch(req.PostLogin, func() { close(done) })

	select {
	case <-done:
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "unavailable", "fetch did not complete")
		return
	}

	s.NotifyFetchComplete()
	writeJSON(w, http.StatusOK, itemsResponse{Items: Render(s.model.GetItemsForDisplay())})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !s.decodeJSONBody(w, r, &req, false) {
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing key")
		return
	}

	switch err := s.model.RemoveItemByKey(key); {
	case errors.Is(err, suggest.ErrNoSuchItem):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, suggest.ErrModelClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"removed": key})
	}
}

func (s *Server) handlePrefsGet(w http.ResponseWriter, r *http.Request) {
	categories := make(map[string]bool, item.NumCategories)
	for _, c := range item.Categories() {
		categories[c.String()] = s.prefs.Enabled(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handlePrefsSet(w http.ResponseWriter, r *http.Request) {
	c, ok := item.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown category")
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !s.decodeJSONBody(w, r, &req, false) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing enabled")
		return
	}

	s.prefs.SetEnabled(c, *req.Enabled)
	if err := s.prefs.Save(); err != nil {
		s.logger.Error("save preferences", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to persist preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": c.String(),
		"enabled":  *req.Enabled,
	})
}

// decodeJSONBody reads and unmarshals the request body. When allowEmpty is
// set, a missing body leaves dst at its zero value.
func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return false
	}
	if len(body) == 0 {
		if allowEmpty {
			return true
		}
		writeError(w, http.StatusBadRequest, "bad_request", "missing request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

// logRequests wraps the mux with zap access logging, leveled by status
// class.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		switch {
		case sw.status >= 500:
			s.logger.Error("http request", fields...)
		case sw.status >= 400:
			s.logger.Warn("http request", fields...)
		default:
			s.logger.Info("http request", fields...)
		}
	})
}

// statusWriter records the response status. It passes Flush and Hijack
// through so the websocket upgrade keeps working behind the wrapper.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
