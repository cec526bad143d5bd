// Package http serves the reporting API over chi.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"saldo/internal/format"
	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
)

// Dependencies are the collaborators the API is built on.
type Dependencies struct {
	Transactions *services.TransactionService
	Reports      *services.ReportService
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready          func(ctx context.Context) error
	Locale         language.Tag
	MaxUploadBytes int64
	// WritesPerMinute bounds mutating requests per client.
	WritesPerMinute int
	Logger          *log.Logger
}

type Server struct {
	http.Server
	txs            *services.TransactionService
	reports        *services.ReportService
	ready          func(ctx context.Context) error
	defaultLocale  language.Tag
	maxUploadBytes int64
	limiter        *ratelimit.Limiter
	detector       *security.Detector
	logger         *log.Logger
	now            func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Locale == (language.Tag{}) {
		deps.Locale = format.DefaultLocale
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 5 << 20
	}

	s := &Server{
		txs:            deps.Transactions,
		reports:        deps.Reports,
		ready:          deps.Ready,
		defaultLocale:  deps.Locale,
		maxUploadBytes: deps.MaxUploadBytes,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WritesPerMinute}),
		detector:       security.NewDetector(),
		logger:         deps.Logger.WithComponent(log.ComponentHTTP),
		now:            time.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(trace.Middleware)
	r.Use(log.Middleware(s.logger, trace.FromRequest))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware(s.logger))
	r.Use(s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.With(middleware.AllowContentType("application/json")).Post("/", s.handleCreateTransaction)
			r.With(middleware.AllowContentType("multipart/form-data")).Post("/import", s.handleImport)
			r.Get("/recent", s.handleRecentTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.With(middleware.AllowContentType("application/json")).Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/imports/{id}", s.handleImportStatus)

		r.Get("/cycles", s.handleCycles)
		r.Get("/summary", s.handleSummary)
		r.Get("/categories", s.handleSuggestedCategories)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/monthly", s.handleMonthlyChart)
			r.Get("/balance", s.handleBalanceChart)
			r.Get("/categories", s.handleCategoryChart)
		})
		r.Get("/reports/compare", s.handleCompare)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/closing-day", s.handleGetClosingDay)
			r.Put("/closing-day", s.handleSetClosingDay)
			r.Get("/limit", s.handleGetLimit)
			r.Put("/limit", s.handleSetLimit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", RequestID: trace.GetRequestID(r.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", RequestID: trace.GetRequestID(r.Context())})
	})
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:     "rate limit exceeded, please try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}
