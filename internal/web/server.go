// Package web provides the HTTP API of the residents' welfare association
// portal.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/rwa/internal/auth"
	"github.com/JonMunkholm/rwa/internal/config"
	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/metrics"
	"github.com/JonMunkholm/rwa/internal/sheets"
	"github.com/JonMunkholm/rwa/internal/web/middleware"
)

// Options are the collaborators of a Server besides the service.
type Options struct {
	Tokens   *auth.Tokens
	Metrics  *metrics.Metrics
	Reporter logging.Reporter
}

// Server is the HTTP server for the portal.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	tokens   *auth.Tokens
	metrics  *metrics.Metrics
	reporter logging.Reporter
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts Options) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		tokens:   opts.Tokens,
		metrics:  opts.Metrics,
		reporter: opts.Reporter,
		router:   chi.NewRouter(),
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokens(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	}
	if s.reporter == nil {
		s.reporter = logging.NewReporter("", "", "")
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	timeout := s.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Authenticate(s.tokens, s.cfg.Auth.CookieName))
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(timeout))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.limiters = append(s.limiters, limiter)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	loginLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled && s.cfg.Rate.LoginLimit > 0 {
		limiter := newRateLimiter(s.cfg.Rate.LoginLimit, time.Minute)
		s.limiters = append(s.limiters, limiter)
		loginLimit = limiter.middleware
	}

	s.router.Route("/api", func(r chi.Router) {
		r.With(loginLimit).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			// Own account
			r.Get("/me", s.handleMe)
			r.Put("/me/password", s.handleChangePassword)

			// Payments
			r.Get("/payments", s.handleListPayments)
			r.Post("/payments/order", s.handleCreateOrder)
			r.Post("/payments/verify", s.handleVerifyPayment)
			r.Get("/receipts/{receiptNo}", s.handleReceipt)

			// Complaints and suggestions
			r.Get("/complaints", s.handleListComplaints)
			r.Post("/complaints", s.handleRaiseComplaint)

			// Read-only association data
			r.Get("/expenditures", s.handleListExpenditures)
			r.Get("/notifications", s.handleListNotifications)
			r.Get("/notices", s.handleNoticeBoard)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			// Members
			r.Get("/members", s.handleListMembers)
			r.Post("/members", s.handleAddMember)
			r.Post("/members/{flatNo}/vacate", s.handleVacateMember)
			r.Post("/members/{flatNo}/password", s.handleResetPassword)

			// Payments
			r.Post("/payments/cash", s.handleCashPayment)
			r.Get("/payments/pending", s.handlePendingPayments)

			// Committee actions
			r.Patch("/complaints/{id}", s.handleUpdateComplaint)
			r.Post("/expenditures", s.handleRecordExpenditure)
			r.Post("/notifications", s.handlePostNotification)
			r.Post("/notifications/{id}/expire", s.handleExpireNotification)

			// Reports
			r.Get("/reports/summary", s.handleSummary)
			r.Get("/reports/defaulters", s.handleDefaulters)

			// Audit log
			r.Get("/audit-log", s.handleAuditLog)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status           string                `json:"status"`
	SpreadsheetCalls *sheets.LimiterStatus `json:"spreadsheet_calls,omitempty"`
}

// handleHealth reports whether the spreadsheet answers and how many
// spreadsheet calls are in flight.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if status, ok := s.service.CallLimiterStatus(); ok {
		resp.SpreadsheetCalls = &status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.service.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, resp)
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// Receipts and the notice board inline their styles.
			w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	if rate <= 0 {
		rate = 100
	}
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by client IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests","message":"Too many requests","code":"RATE001"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
