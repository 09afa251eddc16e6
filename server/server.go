// Package server exposes the flow layer over HTTP for the dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/artisanhub/craft-ai-bridge/accounts"
	"github.com/artisanhub/craft-ai-bridge/actions"
	"github.com/artisanhub/craft-ai-bridge/flow"
)

type Server struct {
	adapter *actions.Adapter
	signUp  *actions.SignUpAction
	logger  *zap.Logger
	http    *http.Server
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSignUp mounts the sign-up endpoint. Without it the route returns
// 404.
func WithSignUp(action *actions.SignUpAction) Option {
	return func(s *Server) { s.signUp = action }
}

func New(addr string, adapter *actions.Adapter, opts ...Option) *Server {
	s := &Server{
		adapter: adapter,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/flows", s.handleListFlows)
		r.Post("/flows/{name}", s.handleRunFlow)
		if s.signUp != nil {
			r.Post("/signup", s.handleSignUp)
		}
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"flows": flow.Names()})
}

func (s *Server) handleRunFlow(w http.ResponseWriter, r *http.Request) {
	name := flow.Name(chi.URLParam(r, "name"))
	if _, ok := flow.Get(name); !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown flow"))
		return
	}

	values, err := decodeValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state := s.adapter.Run(r.Context(), name, values)
	writeJSON(w, statusCodeFor(state), state)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	values, err := decodeValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state := s.signUp.Run(r.Context(), accounts.SignUp{
		Email:           values["email"],
		Password:        values["password"],
		ConfirmPassword: values["confirmPassword"],
	})
	writeJSON(w, statusCodeFor(state), state)
}

// decodeValues accepts either a JSON object of strings or form-encoded
// fields, matching how the dashboard submits.
func decodeValues(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return nil, errors.New("request body must be a JSON object of string fields")
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.New("request body must be form-encoded or JSON")
	}
	values := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values, nil
}

// statusCodeFor maps an action state to an HTTP status. Validation
// failures carry field errors; other failures are provider-side.
func statusCodeFor(state actions.State) int {
	if state.Status == actions.StatusSuccess {
		return http.StatusOK
	}
	if len(state.Errors) > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]any{"error": msg})
}
