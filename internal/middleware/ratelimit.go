package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apierrors "marketpulse/internal/errors"
)

// KeyedLimiter is a process-wide fixed-window request counter keyed by
// caller identity. Each key gets its own window; the first request after
// a window expires resets that key's count. A janitor goroutine evicts
// windows that have been expired for a full window length, so idle keys
// do not accumulate.
//
// The limiter is injected into the router rather than accessed as a
// global, which keeps its lifetime explicit and lets tests construct
// isolated instances.
type KeyedLimiter struct {
	limit  int
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*countWindow

	stop     chan struct{}
	stopOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// countWindow tracks one key's requests in the current window.
type countWindow struct {
	count   int
	resetAt time.Time
}

// NewKeyedLimiter creates a limiter allowing limit requests per window
// per key and starts its eviction janitor.
func NewKeyedLimiter(limit int, window time.Duration, logger *slog.Logger) *KeyedLimiter {
	l := &KeyedLimiter{
		limit:   limit,
		window:  window,
		logger:  logger,
		windows: make(map[string]*countWindow),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go l.janitor()
	return l
}

// Allow records one request for key and reports whether it fits in the
// key's current window.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.windows[key] = &countWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	w.count++
	return w.count <= l.limit
}

// ActiveKeys returns the number of tracked windows, expired or not.
func (l *KeyedLimiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Close stops the janitor goroutine.
func (l *KeyedLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Handler enforces the limit per client IP. Must run after RealIP.
func (l *KeyedLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.Allow(key) {
			l.logger.WarnContext(r.Context(), "rate limit exceeded",
				"key", key,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", formatSeconds(l.window))
			writeErrorEnvelope(w, apierrors.ErrRateLimitExceeded)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// janitor periodically drops windows that expired at least a full window
// ago. A window that expired more recently may still be interesting to a
// returning caller, so it gets one grace period.
func (l *KeyedLimiter) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

// evictExpired removes stale windows under the lock.
func (l *KeyedLimiter) evictExpired() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if w.resetAt.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// clientKey derives the limiter key from the request's client address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// formatSeconds renders a duration as whole seconds for Retry-After.
func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
