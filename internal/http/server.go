package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"pouch/internal/cache"
	"pouch/internal/core"
	"pouch/internal/log"
	"pouch/internal/services"
	"pouch/internal/spending"
	"pouch/internal/storage"
)

type Server struct {
	http.Server
	repo     *storage.SQLiteRepository
	wallets  *services.WalletService
	txs      *services.TransactionService
	spending *spending.Service

	rateLimiter *rateLimiter

	// Read caches, invalidated per user on every write.
	dashboardCache *cache.LRUCache[[]spending.WalletAggregate]
	chartCache     *cache.LRUCache[[]core.PeriodBucket]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, repo *storage.SQLiteRepository, wallets *services.WalletService, txs *services.TransactionService, spendingSvc *spending.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:             repo,
		wallets:          wallets,
		txs:              txs,
		spending:         spendingSvc,
		rateLimiter:      newRateLimiter(),
		dashboardCache:   cache.NewLRUCache[[]spending.WalletAggregate](100, time.Minute),
		chartCache:       cache.NewLRUCache[[]core.PeriodBucket](200, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/wallet", s.withMiddleware(s.handleCreateWallet))
	mux.HandleFunc("GET /api/wallet", s.withMiddleware(s.handleListWallets))
	mux.HandleFunc("PUT /api/wallet", s.withMiddleware(s.handleUpdateWallet))
	mux.HandleFunc("GET /api/wallet/main", s.withMiddleware(s.handleMainWallets))
	mux.HandleFunc("GET /api/wallet/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("GET /api/wallet/{walletId}", s.withMiddleware(s.handleGetWallet))
	mux.HandleFunc("GET /api/wallet/{walletId}/chart", s.withMiddleware(s.handleChart))

	mux.HandleFunc("POST /api/transaction", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transaction", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("GET /api/transaction", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("DELETE /api/transaction/{transactionId}", s.withMiddleware(s.handleDeleteTransaction))

	return s
}

// withMiddleware adds request ids, security headers, rate limiting on
// mutating methods, identity enforcement and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			"method", r.Method,
			"url", r.URL.Path,
			log.FieldClientIP, clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeAPIError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many requests", "Try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if userID(r) == "" {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHENTICATED",
				"Missing identity", "The X-User-ID header is required")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateUser drops every cached read for one user after a write.
func (s *Server) invalidateUser(userID string) {
	s.dashboardCache.DeletePrefix(userID + "|")
	s.chartCache.DeletePrefix(userID + "|")
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.dashboardCache.CleanExpired() + s.chartCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
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
	_, _ = w.Write([]byte("ok"))
}

// Simple in-memory per-IP rate limiter, 60 mutating requests per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
