package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/handler"
	"github.com/DukeRupert/turfplot/internal/metrics"
)

// Limiter decides whether another request for key fits in the current
// window. retryAfter is meaningful only when allowed is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// =============================================================================
// In-memory limiter
// =============================================================================

// RateLimiter is a fixed-window Limiter held in process memory. It suits a
// single server; use RedisLimiter when several instances share traffic.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates an in-memory limiter and starts its cleanup
// goroutine. Call Stop to end it.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		entries:     make(map[string]*rateLimitEntry),
		stopCh:      make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow counts a request for key.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.entries[key]
	if !exists || now.Sub(entry.windowStart) > rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true, 0, nil
	}

	if entry.count < rl.maxAttempts {
		entry.count++
		return true, 0, nil
	}
	return false, rl.window - now.Sub(entry.windowStart), nil
}

// Reset clears the count for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// LimitAccountTokens returns middleware for rate limiting the password reset
// and email verification endpoints.
func (a *AuthRateLimiter) LimitAccountTokens(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.accountTokens, a.logger).Limit(next)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// cleanup periodically removes expired entries.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) > rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// =============================================================================
// Redis limiter
// =============================================================================

// RedisLimiter is a fixed-window Limiter shared through Redis. The first hit
// in a window sets the key's expiry.
type RedisLimiter struct {
	rdb         *redis.Client
	prefix      string
	maxAttempts int64
	window      time.Duration
}

// NewRedisLimiter creates a limiter whose counters live under
// "turfplot:ratelimit:<name>:".
func NewRedisLimiter(rdb *redis.Client, name string, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:         rdb,
		prefix:      "turfplot:ratelimit:" + name + ":",
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// Allow counts a request for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	if incr.Val() <= l.maxAttempts {
		return true, 0, nil
	}
	return false, ttl.Val(), nil
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware rejects clients that exceed a Limiter with 429.
// Limiter errors let the request through.
type RateLimitMiddleware struct {
	limiter Limiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
func NewRateLimitMiddleware(limiter Limiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests by client IP.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		allowed, retryAfter, err := m.limiter.Allow(r.Context(), clientIP)
		if err != nil {
			m.logger.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Warn("rate limit exceeded",
			"ip", clientIP,
			"path", r.URL.Path,
			"method", r.Method,
		)

		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		metrics.RateLimited(r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		handler.ErrorResponse(w, r, m.logger, domain.RateLimit("RateLimitMiddleware.Limit"))
	})
}

// =============================================================================
// Auth Rate Limiter
// =============================================================================

// AuthRateLimiter holds the limiters for the credential endpoints:
// - login: 5 attempts per 15 minutes
// - register: 3 attempts per hour
// - change password: 5 attempts per 15 minutes
// - account tokens (reset, verification): 5 requests per hour
type AuthRateLimiter struct {
	login          Limiter
	register       Limiter
	changePassword Limiter
	accountTokens  Limiter
	logger         *slog.Logger
	stop           []func()
}

// NewAuthRateLimiter shares counters through Redis when rdb is non-nil and
// keeps them in memory otherwise.
func NewAuthRateLimiter(rdb *redis.Client, logger *slog.Logger) *AuthRateLimiter {
	a := &AuthRateLimiter{logger: logger}

	build := func(name string, max int, window time.Duration) Limiter {
		if rdb != nil {
			return NewRedisLimiter(rdb, name, max, window)
		}
		rl := NewRateLimiter(max, window)
		a.stop = append(a.stop, rl.Stop)
		return rl
	}

	a.login = build("login", 5, 15*time.Minute)
	a.register = build("register", 3, time.Hour)
	a.changePassword = build("change-password", 5, 15*time.Minute)
	a.accountTokens = build("account-tokens", 5, time.Hour)
	return a
}

// LimitLogin returns middleware for rate limiting login attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.login, a.logger).Limit(next)
}

// LimitRegister returns middleware for rate limiting registration attempts.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.register, a.logger).Limit(next)
}

// LimitChangePassword returns middleware for rate limiting password changes.
func (a *AuthRateLimiter) LimitChangePassword(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.changePassword, a.logger).Limit(next)
}

// Stop ends the cleanup goroutines of in-memory limiters.
func (a *AuthRateLimiter) Stop() {
	for _, stop := range a.stop {
		stop()
	}
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may list client, proxy1, proxy2; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if clientIP := strings.TrimSpace(strings.Split(xff, ",")[0]); clientIP != "" {
			return clientIP
		}
	}

	// Check X-Real-IP (nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
