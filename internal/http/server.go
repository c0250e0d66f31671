// Package http exposes the JSON API used by the mobile client.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dompet/internal/auth"
	applog "dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/receipt"
	"dompet/internal/services"
)

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Transactions *services.TransactionService
	Auth         *auth.Service
	// Scanner is nil when OCR is disabled; scans then answer 503.
	Scanner *receipt.Scanner
	// Ready reports whether the backing store is reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger

	RateLimitPerMinute int
	TrustedProxies     []string
	BlockSuspicious    bool
}

type Server struct {
	http.Server
	txs     *services.TransactionService
	auth    *auth.Service
	scanner *receipt.Scanner
	ready   func(ctx context.Context) error
	logger  *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Transactions == nil || deps.Auth == nil || deps.Logger == nil {
		return nil, fmt.Errorf("http server requires transactions, auth and logger")
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector(deps.Logger)
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		txs:      deps.Transactions,
		auth:     deps.Auth,
		scanner:  deps.Scanner,
		ready:    deps.Ready,
		logger:   logger,
		detector: detector,
		tracer:   trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}, deps.Logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/ledger", s.handleLedger)
	api.HandleFunc("GET /api/analytics/categories", s.handleCategoryAnalytics)
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/categories", s.handleAddCategory)
	api.HandleFunc("POST /api/receipts/scan", s.handleScanReceipt)
	mux.Handle("/api/", s.auth.Middleware(api))

	var handler http.Handler = mux
	handler = s.limitMutations(handler)
	handler = detector.Middleware(deps.BlockSuspicious)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// limitMutations applies the per-client limit to writes only.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
