// Package api serves the keyhaven operation surface as JSON over a
// Unix socket.
//
// The transport is deliberately narrow: one invoke endpoint carrying a
// method name and an argument bundle, mirroring the message-passing
// boundary the dispatcher expects. Connections are accepted only from
// the daemon's own uid, and methods that can raise an interactive
// prompt are rate limited so a runaway client cannot spam the user.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/keyhaven/keyhaven/internal/audit"
	"github.com/keyhaven/keyhaven/internal/dispatch"
)

// promptMethods can suspend on an OS authentication prompt.
var promptMethods = map[string]bool{
	"authenticate":        true,
	"readAccountPassword": true,
}

// Server exposes a Dispatcher over HTTP.
type Server struct {
	dispatcher *dispatch.Dispatcher
	auditor    *audit.Logger
	limiter    *rate.Limiter
	logger     *slog.Logger
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAuditTrail serves recent audit entries at /v1/audit/recent.
func WithAuditTrail(l *audit.Logger) Option {
	return func(s *Server) { s.auditor = l }
}

// NewServer creates an API server over the given dispatcher.
func NewServer(d *dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		// One prompt per second, small burst: user-paced operations
		// should never hit this, a tight loop will.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		logger:  slog.With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/invoke", s.invoke).Methods(http.MethodPost)
	r.HandleFunc("/v1/methods", s.methods).Methods(http.MethodGet)
	r.HandleFunc("/v1/health", s.health).Methods(http.MethodGet)
	if s.auditor != nil {
		r.HandleFunc("/v1/audit/recent", s.auditRecent).Methods(http.MethodGet)
	}

	s.server = &http.Server{Handler: r}
	return s
}

// ListenUnix serves on a Unix socket restricted to the daemon's uid.
func (s *Server) ListenUnix(path string) error {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, 0600); err != nil {
		ln.Close()
		return err
	}
	s.logger.Info("API listening", "socket", path)
	return s.server.Serve(&peerCheckedListener{Listener: ln, logger: s.logger})
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type invokeRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &dispatch.Error{Code: dispatch.CodeBadRequest, Message: "malformed request body"})
		return
	}
	if req.Method == "" {
		writeError(w, &dispatch.Error{Code: dispatch.CodeBadRequest, Message: "method is required"})
		return
	}

	if promptMethods[req.Method] && !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"code":    "rate_limited",
			"message": "too many interactive authentication requests",
		})
		return
	}

	result, err := s.dispatcher.Invoke(r.Context(), req.Method, req.Arguments)
	if err != nil {
		var de *dispatch.Error
		if errors.As(err, &de) {
			writeError(w, de)
			return
		}
		// The dispatcher contract is *dispatch.Error only; anything
		// else is a bug worth surfacing loudly.
		s.logger.Error("unexpected dispatcher error", "method", req.Method, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"code": "internal", "message": "internal error",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) methods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"methods": dispatch.Methods()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) auditRecent(w http.ResponseWriter, r *http.Request) {
	n := 50
	if q := r.URL.Query().Get("n"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			writeError(w, &dispatch.Error{Code: dispatch.CodeBadRequest, Message: "n must be a positive integer"})
			return
		}
		n = parsed
	}
	entries := s.auditor.Recent(n)
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeError(w http.ResponseWriter, e *dispatch.Error) {
	writeJSON(w, statusFor(e.Code), e)
}

func statusFor(code string) int {
	switch code {
	case dispatch.CodeBadRequest:
		return http.StatusBadRequest
	case dispatch.CodeNotImplemented:
		return http.StatusNotImplemented
	case "not_found":
		return http.StatusNotFound
	case "duplicate_item":
		return http.StatusConflict
	case "user_canceled":
		return http.StatusConflict
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
