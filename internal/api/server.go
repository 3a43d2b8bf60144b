package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
	"github.com/JakeFAU/page-analyzer/internal/config"
	"github.com/JakeFAU/page-analyzer/internal/logging"
	"github.com/JakeFAU/page-analyzer/internal/metrics"
	"github.com/JakeFAU/page-analyzer/internal/web"
)

// Service is the set of page analyzer operations the handlers call.
type Service interface {
	AddURL(ctx context.Context, raw string) (analyzer.URL, bool, error)
	GetURL(ctx context.Context, id int64) (analyzer.URL, []analyzer.Check, error)
	ListURLs(ctx context.Context) ([]analyzer.URLSummary, error)
	CheckURL(ctx context.Context, id int64) (analyzer.Check, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the analyzer service.
type Server struct {
	router   chi.Router
	svc      Service
	renderer *web.Renderer
	sessions sessions.Store
	pinger   Pinger
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. pinger may be nil
// when storage is in memory.
func NewServer(
	svc Service,
	renderer *web.Renderer,
	store sessions.Store,
	cfg config.Config,
	logger *zap.Logger,
	pinger Pinger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:      svc,
		renderer: renderer,
		sessions: store,
		pinger:   pinger,
		cfg:      cfg,
		logger:   logger.Named("api"),
	}
	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(s.logger))
	r.Use(loggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(timeout))

	r.NotFound(s.notFound)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", s.index)
	r.Route("/urls", func(r chi.Router) {
		r.Get("/", s.listURLs)
		r.Post("/", s.createURL)
		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", s.showURL)
			r.Post("/checks", s.createCheck)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			logging.FromContext(r.Context(), s.logger).Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			ctx = logging.IntoContext(ctx, base.With(zap.String("request_id", reqID)))
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context(), nil).Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context(), s.logger).Error("panic recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				s.renderError(w, r, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
