package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// ownerHeader carries the caller's principal. Every /api route is scoped to
// it; requests without it are rejected before any handler runs.
const ownerHeader = "X-Owner-ID"

type Server struct {
	http.Server

	repo      *storage.SQLiteRepository
	ledger    *services.LedgerService
	budgets   *services.BudgetService
	scheduler *services.Scheduler

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
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

// startCleanup runs periodic cleanup to remove stale client entries
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

// cleanupStaleEntries removes client entries older than 10 minutes
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

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, repo *storage.SQLiteRepository, ledger *services.LedgerService,
	budgets *services.BudgetService, scheduler *services.Scheduler, logger *log.Logger) *Server {

	s := &Server{
		repo:        repo,
		ledger:      ledger,
		budgets:     budgets,
		scheduler:   scheduler,
		rateLimiter: newRateLimiter(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/accounts", s.withOwner(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.withOwner(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.withOwner(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.withOwner(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withOwner(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/categories", s.withOwner(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories", s.withOwner(s.handleListCategories))
	mux.HandleFunc("GET /api/categories/{id}", s.withOwner(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withOwner(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withOwner(s.handleDeleteCategory))

	mux.HandleFunc("POST /api/transactions", s.withOwner(s.handleCreateEntry))
	mux.HandleFunc("GET /api/transactions", s.withOwner(s.handleListEntries))
	mux.HandleFunc("GET /api/transactions/{id}", s.withOwner(s.handleGetEntry))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withOwner(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withOwner(s.handleDeleteEntry))

	mux.HandleFunc("POST /api/budgets", s.withOwner(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets", s.withOwner(s.handleListBudgets))
	mux.HandleFunc("GET /api/budgets/{id}", s.withOwner(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.withOwner(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withOwner(s.handleDeleteBudget))

	mux.HandleFunc("POST /api/recurring", s.withOwner(s.handleCreateTemplate))
	mux.HandleFunc("GET /api/recurring", s.withOwner(s.handleListTemplates))
	mux.HandleFunc("GET /api/recurring/{id}", s.withOwner(s.handleGetTemplate))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withOwner(s.handleUpdateTemplate))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withOwner(s.handleDeleteTemplate))

	// The sweep is not owner-scoped: it materializes due templates across
	// all owners, same as the periodic in-process sweep.
	mux.HandleFunc("POST /api/recurring/sweep", s.handleSweep)

	var handler http.Handler = mux
	handler = s.withSecurityHeaders(handler)
	if logger != nil {
		handler = log.RequestLogger(logger)(handler)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withOwner rejects requests without a principal header and passes the owner
// id to the handler.
func (s *Server) withOwner(next func(w http.ResponseWriter, r *http.Request, ownerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.Header.Get(ownerHeader)
		if ownerID == "" {
			respondBadRequest(w, "missing "+ownerHeader+" header")
			return
		}
		next(w, r, ownerID)
	}
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(requestIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Message: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
