// Package http exposes the statement engine over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	appamqp "dre/internal/amqp"
	"dre/internal/cache"
	"dre/internal/core"
	"dre/internal/formula"
	"dre/internal/middleware/ratelimit"
	"dre/internal/middleware/security"
	"dre/internal/middleware/trace"
	"dre/internal/pnl"
	"dre/internal/services"
)

// Server wires the statement session and supporting services behind the
// HTTP routes.
type Server struct {
	http.Server

	session   *services.Session
	drill     *services.DrillDown
	breakdown *services.Breakdown
	summaries pnl.SummaryReader
	purger    pnl.DataPurger
	events    *appamqp.Client

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	// Derived responses are cached; any override or data clear purges them.
	drillCache     *cache.LRUCache[core.DrillDown]
	breakdownCache *cache.LRUCache[*formula.Breakdown]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// Options tunes server-side caching. Zero values fall back to defaults.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. The AMQP client may be nil when messaging is disabled.
func NewServer(addr string, backend pnl.Backend, events *appamqp.Client, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      nil, // set below once middleware is assembled
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session:        services.NewSession(backend, backend, events),
		drill:          services.NewDrillDown(backend),
		breakdown:      services.NewBreakdown(backend),
		summaries:      backend,
		purger:         backend,
		events:         events,
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:         trace.NewMiddleware(extractClientIP),
		drillCache:     cache.NewLRUCache[core.DrillDown](opts.CacheSize, opts.CacheTTL),
		breakdownCache: cache.NewLRUCache[*formula.Breakdown](len(formula.Kinds), opts.CacheTTL),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.drillCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /pnl", s.handleStatement)
	mux.HandleFunc("POST /pnl/override", s.handleOverride)
	mux.HandleFunc("GET /pnl/transactions/{line}", s.handleTransactions)
	mux.HandleFunc("GET /pnl/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /pnl/export", s.handleExport)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("DELETE /pnl/overrides", s.handleClearOverrides)
	mux.HandleFunc("DELETE /api/data", s.handleClearData)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limitMutations(mux)
	s.Server.Handler = s.tracer.Middleware(headers.Middleware(limited))

	return s
}

// limitMutations applies the rate limiter to state-changing requests only.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.limiter.Allow(extractClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateDerived purges every cached response computed from cell
// values. Called after an override or a data clear.
func (s *Server) invalidateDerived() {
	s.drillCache.Purge()
	s.breakdownCache.Purge()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
