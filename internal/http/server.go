package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/middleware/security"
	"cashflow/internal/middleware/trace"
	"cashflow/internal/report"
	"cashflow/internal/services"
	"cashflow/internal/taxonomy"
)

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Service  *services.TransactionService
	Engine   *report.Engine
	Taxonomy *taxonomy.Taxonomy
	// Ready reports whether the store can serve requests. Nil means always.
	Ready func(context.Context) error
	Logger *applog.Logger

	DefaultTenant      string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

type appMetrics struct {
	uptime time.Time
	mu     sync.Mutex
	// created counts transactions stored through the API, imports included.
	created int64
}

func (m *appMetrics) addCreated(n int) {
	m.mu.Lock()
	m.created += int64(n)
	m.mu.Unlock()
}

func (m *appMetrics) createdTotal() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

type Server struct {
	http.Server
	deps   Deps
	logger *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Taxonomy == nil {
		deps.Taxonomy = taxonomy.Default()
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		deps:             deps,
		logger:           deps.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded", applog.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(limited)
		r.Use(chimw.Timeout(s.deps.RequestTimeout))

		r.Get("/taxonomy", s.handleTaxonomy)
		r.Get("/taxonomy/categories", s.handleCategories)
		r.Get("/taxonomy/subcategories", s.handleSubcategories)

		r.Post("/transactions", s.handleCreateTransaction)
		r.Get("/transactions", s.handleListTransactions)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/totals", s.handleTotals)
			r.Get("/cashflow", s.handleCashflow)
			r.Get("/breakdown", s.handleBreakdown)
			r.Get("/categories", s.handleCategorySums)
			r.Get("/advice", s.handleAdvice)
		})

		r.Get("/export.csv", s.handleExport)
		r.Post("/import", s.handleImport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) tenant(r *http.Request) string {
	return tenantFrom(r, s.deps.DefaultTenant)
}
