// Package http serves the JSON API for the shared-expense engine.
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

	"coppia/internal/cache"
	"coppia/internal/core"
	"coppia/internal/metrics"
	"coppia/internal/services"
)

// BudgetWriter is the storage surface the budget endpoints need.
type BudgetWriter interface {
	SaveBudget(ctx context.Context, b core.Budget) error
}

type Server struct {
	http.Server

	expenses  *services.ExpenseService
	analytics *services.AnalyticsService
	goals     *services.GoalService
	budgets   BudgetWriter
	metrics   *metrics.Metrics

	rateLimiter *rateLimiter

	// Summary responses are cached per couple and month; writes invalidate
	// the affected month.
	chartsCache     *cache.LRU[services.ChartsSummary]
	settlementCache *cache.LRU[services.SettlementSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

type Options struct {
	Addr     string
	CacheTTL time.Duration
}

func NewServer(opts Options, expenses *services.ExpenseService, analytics *services.AnalyticsService, goals *services.GoalService, budgets BudgetWriter, m *metrics.Metrics) *Server {
	mux := http.NewServeMux()

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		expenses:         expenses,
		analytics:        analytics,
		goals:            goals,
		budgets:          budgets,
		metrics:          m,
		rateLimiter:      newRateLimiter(),
		chartsCache:      cache.NewLRU[services.ChartsSummary](100, ttl),
		settlementCache:  cache.NewLRU[services.SettlementSummary](100, ttl),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	mux.HandleFunc("GET /api/expenses", s.wrap(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.wrap(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.wrap(s.handleDeleteExpense))

	mux.HandleFunc("POST /api/budgets", s.wrap(s.handleUpsertBudget))
	mux.HandleFunc("GET /api/budgets/status/{year}/{month}", s.wrap(s.handleBudgetStatus))

	mux.HandleFunc("GET /api/summary/charts/{year}/{month}", s.wrap(s.handleChartsSummary))
	mux.HandleFunc("GET /api/analytics/trends/{start}/{end}", s.wrap(s.handleTrends))
	mux.HandleFunc("GET /api/analytics/savings-analysis/{start}/{end}", s.wrap(s.handleSavingsAnalysis))
	mux.HandleFunc("GET /api/analytics/current-settlement", s.wrap(s.handleCurrentSettlement))

	mux.HandleFunc("POST /api/savings/goals", s.wrap(s.handleCreateGoal))
	mux.HandleFunc("GET /api/savings/goals", s.wrap(s.handleListGoals))
	mux.HandleFunc("GET /api/savings/goals/{id}/contributions", s.wrap(s.handleListContributions))
	mux.HandleFunc("POST /api/savings/goals/{id}/contributions", s.wrap(s.handleContribute))
	mux.HandleFunc("POST /api/savings/goals/{id}/quick-add", s.wrap(s.handleQuickAdd))

	mux.HandleFunc("GET /api/couple/summary", s.wrap(s.handleCoupleSummary))

	return s
}

// wrap adds security headers, rate limiting, request tracing, metrics and
// request logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutations only; reads are cheap and cached.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.Observe(r.Method, r.URL.Path, rw.statusCode, duration)
		}
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseRecorder captures the status code for logging and metrics.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			charts := s.chartsCache.CleanExpired()
			settlements := s.settlementCache.CleanExpired()
			if charts > 0 || settlements > 0 {
				slog.Debug("Cache cleanup completed",
					"charts_removed", charts,
					"settlements_removed", settlements)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateMonth drops cached summaries touched by a write in that month.
// Charts are cached per requester, so both partners' entries go.
func (s *Server) invalidateMonth(c core.Couple, year, month int) {
	s.chartsCache.Delete(chartsCacheKey(c.ID, c.UserA, year, month))
	s.chartsCache.Delete(chartsCacheKey(c.ID, c.UserB, year, month))
	s.settlementCache.Delete(settlementCacheKey(c.ID))
}

func chartsCacheKey(coupleID string, requester core.UserID, year, month int) string {
	return fmt.Sprintf("charts:%s:%s:%04d-%02d", coupleID, requester, year, month)
}

func settlementCacheKey(coupleID string) string {
	return "settlement:" + coupleID
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
