// Package http exposes the JSON API: authentication, expense and income
// management, the budget-cycle dashboard, savings history and PDF
// reports.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/localstore"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Store is the slice of the repository the API needs.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, userID, id string) (*core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)

	CreateIncome(ctx context.Context, in core.Income) error
	DeleteIncome(ctx context.Context, userID, id string) error
	ListIncomes(ctx context.Context, userID string) ([]core.Income, error)

	GetMonthlySaving(ctx context.Context, userID string, month core.MonthKey) (*core.MonthlySaving, error)
	CreateMonthlySaving(ctx context.Context, s core.MonthlySaving) error
	ListMonthlySavings(ctx context.Context, userID string) ([]core.MonthlySaving, error)
	DeleteMonthlySaving(ctx context.Context, userID, id string) error

	GetUser(ctx context.Context, id string) (*storage.User, error)
	UpdateBudgetConfig(ctx context.Context, userID string, cfg core.BudgetConfig) error
}

// SnapshotPublisher hands snapshot checks to the worker. Optional; when
// absent the server generates snapshots inline.
type SnapshotPublisher interface {
	PublishSnapshotCheck(ctx context.Context, userID string) error
}

// Deps collects everything the server needs. Publisher may be nil.
type Deps struct {
	Store     Store
	Auth      *auth.Service
	Local     *localstore.Store
	Publisher SnapshotPublisher
}

type Server struct {
	http.Server

	store     Store
	auth      *auth.Service
	local     *localstore.Store
	publisher SnapshotPublisher
	generator *budget.Generator

	rateLimiter *rateLimiter
	httpLog     *log.StructuredLogger

	// dashboard overviews are cached per user and invalidated on every
	// successful write
	overviewCache *cache.LRUCache[dashboardResponse]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()
	httpLogger := log.New(log.Config{
		Handler:   slog.Default().Handler(),
		Component: log.ComponentHTTP,
	})

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(httpLogger)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:         deps.Store,
		auth:          deps.Auth,
		local:         deps.Local,
		publisher:     deps.Publisher,
		generator:     budget.NewGenerator(deps.Store),
		rateLimiter:   newRateLimiter(),
		httpLog:       log.NewStructuredLogger(httpLogger),
		overviewCache: cache.NewLRUCache[dashboardResponse](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withMiddleware(s.handleLogout))
	mux.HandleFunc("GET /api/auth/me", s.withMiddleware(s.withUser(s.handleMe)))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.withUser(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.withUser(s.handleCreateExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withMiddleware(s.withUser(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.withUser(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/incomes", s.withMiddleware(s.withUser(s.handleListIncomes)))
	mux.HandleFunc("POST /api/incomes", s.withMiddleware(s.withUser(s.handleCreateIncome)))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withMiddleware(s.withUser(s.handleDeleteIncome)))

	mux.HandleFunc("GET /api/recurring", s.withMiddleware(s.withUser(s.handleListRecurring)))
	mux.HandleFunc("POST /api/recurring", s.withMiddleware(s.withUser(s.handleCreateRecurring)))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withMiddleware(s.withUser(s.handleUpdateRecurring)))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withMiddleware(s.withUser(s.handleDeleteRecurring)))

	mux.HandleFunc("GET /api/labels", s.withMiddleware(s.withUser(s.handleListLabels)))
	mux.HandleFunc("POST /api/labels", s.withMiddleware(s.withUser(s.handleCreateLabel)))
	mux.HandleFunc("DELETE /api/labels/{id}", s.withMiddleware(s.withUser(s.handleDeleteLabel)))

	mux.HandleFunc("GET /api/profile", s.withMiddleware(s.withUser(s.handleGetProfile)))
	mux.HandleFunc("PUT /api/profile", s.withMiddleware(s.withUser(s.handleUpdateProfile)))

	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.withUser(s.handleDashboard)))

	mux.HandleFunc("GET /api/savings", s.withMiddleware(s.withUser(s.handleListSavings)))
	mux.HandleFunc("DELETE /api/savings/{id}", s.withMiddleware(s.withUser(s.handleDeleteSaving)))

	mux.HandleFunc("GET /api/reports/expenses.pdf", s.withMiddleware(s.withUser(s.handleExpenseReport)))

	return s
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting and request
// logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP, requestID)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP, requestID)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateDashboard(userID string) {
	s.overviewCache.DeletePrefix("overview:" + userID + ":")
}
