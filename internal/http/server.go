// Package http serves the ledger REST API.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	"ledger/internal/storage"
)

const (
	reportCacheSize = 256
	reportCacheTTL  = 5 * time.Minute
)

type appMetrics struct {
	startedAt           time.Time
	transactionsWritten int64
	categoriesWritten   int64
	cacheHits           int64
	cacheMisses         int64
}

type Server struct {
	http.Server

	storage      *storage.Repository
	categories   *services.CategoryService
	transactions *services.TransactionService

	rateLimiter *ratelimit.Limiter
	traceMW     *trace.Middleware

	// Summary and spending responses are cached per user and date range.
	// Cache keys carry a per-user epoch; any write for that user bumps the
	// epoch, so stale entries become unreachable and age out by TTL.
	summaryCache  *cache.Store[core.Summary]
	spendingCache *cache.Store[[]core.CategorySpend]
	cacheJanitor  *cache.Janitor
	epochMu       sync.Mutex
	cacheEpochs   map[int64]uint64

	metrics      appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. requestsPerMinute bounds write traffic per client IP.
func NewServer(addr string, repo *storage.Repository, categories *services.CategoryService, transactions *services.TransactionService, requestsPerMinute int) *Server {
	s := &Server{
		storage:      repo,
		categories:   categories,
		transactions: transactions,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: requestsPerMinute,
		}),
		traceMW:       trace.NewMiddleware(clientIP),
		summaryCache:  cache.New[core.Summary](reportCacheSize, reportCacheTTL),
		spendingCache: cache.New[[]core.CategorySpend](reportCacheSize, reportCacheTTL),
		cacheJanitor:  cache.NewJanitor(),
		cacheEpochs:   make(map[int64]uint64),
		metrics:       appMetrics{startedAt: time.Now()},
	}

	s.cacheJanitor.Register(s.summaryCache)
	s.cacheJanitor.Register(s.spendingCache)
	s.cacheJanitor.Start(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/spending", s.handleSpending)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := s.traceMW.Middleware(headers.Middleware(s.limitWrites(mux)))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// limitWrites applies per-IP rate limiting to mutating requests only.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.rateLimiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address, honoring proxy headers. The port is
// stripped so the rate limiter keys on the host, not the connection.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first element is the originating client; the rest are proxies.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Shutdown stops the background cleanup goroutines before shutting down the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheJanitor.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) userEpoch(userID int64) uint64 {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	return s.cacheEpochs[userID]
}

// invalidateUser makes every cached report for the user unreachable.
func (s *Server) invalidateUser(userID int64) {
	s.epochMu.Lock()
	s.cacheEpochs[userID]++
	s.epochMu.Unlock()
}

func (s *Server) reportCacheKey(userID int64, start, end core.Date) string {
	return strconv.FormatUint(s.userEpoch(userID), 10) + ":" +
		strconv.FormatInt(userID, 10) + ":" + start.String() + ":" + end.String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.storage.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "not ready: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMW.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP transactions_written_total Transactions created, updated, or deleted\n")
	fmt.Fprintf(w, "# TYPE transactions_written_total counter\n")
	fmt.Fprintf(w, "transactions_written_total %d\n\n", atomic.LoadInt64(&s.metrics.transactionsWritten))

	fmt.Fprintf(w, "# HELP categories_written_total Categories created, updated, or deleted\n")
	fmt.Fprintf(w, "# TYPE categories_written_total counter\n")
	fmt.Fprintf(w, "categories_written_total %d\n\n", atomic.LoadInt64(&s.metrics.categoriesWritten))

	fmt.Fprintf(w, "# HELP report_cache_hits_total Summary and spending cache hits\n")
	fmt.Fprintf(w, "# TYPE report_cache_hits_total counter\n")
	fmt.Fprintf(w, "report_cache_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheHits))

	fmt.Fprintf(w, "# HELP report_cache_misses_total Summary and spending cache misses\n")
	fmt.Fprintf(w, "# TYPE report_cache_misses_total counter\n")
	fmt.Fprintf(w, "report_cache_misses_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheMisses))

	fmt.Fprintf(w, "# HELP report_cache_entries Current cached report entries\n")
	fmt.Fprintf(w, "# TYPE report_cache_entries gauge\n")
	fmt.Fprintf(w, "report_cache_entries{type=\"summary\"} %d\n", s.summaryCache.Len())
	fmt.Fprintf(w, "report_cache_entries{type=\"spending\"} %d\n\n", s.spendingCache.Len())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.startedAt).Seconds())
}
