package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Rate limiter cleanup configuration.
const (
	DefaultClientTTL   = 10 * time.Minute
	MinCleanupInterval = 10 * time.Second
	MaxCleanupInterval = time.Minute
)

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client address. The number of
// tracked clients is bounded; when full, the least recently seen client is
// evicted.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientEntry
	limit      rate.Limit
	burst      int
	maxClients int
	clientTTL  time.Duration
	now        func() time.Time
	logger     observability.Logger
	onReject   func()
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		if logger != nil {
			rl.logger = logger
		}
	}
}

// WithRejectHook registers a callback run for every rejected request.
func WithRejectHook(fn func()) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.onReject = fn
	}
}

// WithClientTTL sets how long an idle client bucket is kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if ttl > 0 {
			rl.clientTTL = ttl
		}
	}
}

// NewRateLimiter creates a per-client rate limiter.
func NewRateLimiter(rps float64, burst, maxClients int, opts ...RateLimiterOption) *RateLimiter {
	if maxClients <= 0 {
		maxClients = 10000
	}
	rl := &RateLimiter{
		clients:    make(map[string]*clientEntry),
		limit:      rate.Limit(rps),
		burst:      burst,
		maxClients: maxClients,
		clientTTL:  DefaultClientTTL,
		now:        time.Now,
		logger:     observability.NopLogger(),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow reports whether a request from client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	now := rl.now()

	rl.mu.Lock()
	entry, ok := rl.clients[client]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			rl.evictOldestLocked()
		}
		entry = &clientEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (rl *RateLimiter) evictOldestLocked() {
	var (
		oldestKey  string
		oldestSeen time.Time
		found      bool
	)
	for k, e := range rl.clients {
		if !found || e.lastAccess.Before(oldestSeen) {
			oldestKey, oldestSeen, found = k, e.lastAccess, true
		}
	}
	if found {
		delete(rl.clients, oldestKey)
	}
}

// Clients returns the number of tracked client buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldClients removes buckets idle for longer than maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	removed := 0
	for k, e := range rl.clients {
		if now.Sub(e.lastAccess) > maxAge {
			delete(rl.clients, k)
			removed++
		}
	}
	remaining := len(rl.clients)
	rl.mu.Unlock()

	if removed > 0 {
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", remaining),
		)
	}
}

// StartAutoCleanup starts a goroutine that evicts idle buckets until Stop.
func (rl *RateLimiter) StartAutoCleanup() {
	interval := rl.clientTTL / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(rl.clientTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// RateLimit returns a middleware that answers 429 once a client exhausts
// its bucket.
func RateLimit(rl *RateLimiter, ips *ClientIPExtractor) func(http.Handler) http.Handler {
	if ips == nil {
		ips = NewClientIPExtractor(nil)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ips.Extract(r)
			if rl.Allow(clientIP) {
				GetMetrics().rateLimitAllowed.Inc()
				next.ServeHTTP(w, r)
				return
			}

			GetMetrics().rateLimitRejected.Inc()
			if rl.onReject != nil {
				rl.onReject()
			}
			rl.logger.Warn("rate limit exceeded",
				observability.String("client_ip", clientIP),
				observability.String("path", r.URL.Path),
				observability.String("request_id", observability.RequestIDFromContext(r.Context())),
			)

			w.Header().Set(HeaderRetryAfter, "1")
			util.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": codeRateLimitExceeded})
		})
	}
}

// RateLimitFromConfig creates the rate limit middleware from configuration.
// The returned limiter is nil when rate limiting is disabled; otherwise the
// caller must Stop it on shutdown.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	ips *ClientIPExtractor,
	logger observability.Logger,
	opts ...RateLimiterOption,
) (func(http.Handler) http.Handler, *RateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	opts = append([]RateLimiterOption{WithRateLimiterLogger(logger)}, opts...)
	rl := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.MaxClients, opts...)
	rl.StartAutoCleanup()
	return RateLimit(rl, ips), rl
}
