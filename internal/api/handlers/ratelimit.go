package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"moodwave/internal/auth"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused per-user limiter is kept
const idleLimiterTTL = time.Hour

// RateLimiter limits submissions per identity
type RateLimiter struct {
	limiters  map[string]*rateLimiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	window    time.Duration
	now       func() time.Time
	stopClean chan struct{}
	stopOnce  sync.Once
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows burst requests per window for each user. A burst of 0 disables limiting.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Every(window / time.Duration(max(burst, 1))),
		burst:     burst,
		window:    window,
		now:       time.Now,
		stopClean: make(chan struct{}),
	}
}

// Allow reports whether userID may make another request now
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.burst <= 0 {
		return true
	}

	now := rl.now()
	rl.mu.Lock()
	entry, exists := rl.limiters[userID]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[userID] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Middleware rejects identified requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		if !rl.Allow(userID) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many submissions, try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// StartCleanup drops idle limiters every interval until Stop is called
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopClean:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-idleLimiterTTL)
	for userID, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, userID)
		}
	}
}

// Stop ends StartCleanup
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopClean) })
}
