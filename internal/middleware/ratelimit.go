package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-client request budgets. Mutating requests draw
// from their own, usually smaller, budget.
type RateLimitConfig struct {
	Enabled             bool
	RequestsPerMin      int
	WriteRequestsPerMin int
	BurstSize           int
	CleanupMinutes      int
}

type bucketKey struct {
	ip    string
	write bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per client address and request class.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	read    rate.Limit
	write   rate.Limit
	burst   int
	idle    time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter starts a limiter and its sweeper goroutine. Call Close to stop it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	idle := time.Duration(cfg.CleanupMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	writeRPM := cfg.WriteRequestsPerMin
	if writeRPM <= 0 {
		writeRPM = cfg.RequestsPerMin
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		read:    rate.Limit(float64(cfg.RequestsPerMin) / 60),
		write:   rate.Limit(float64(writeRPM) / 60),
		burst:   burst,
		idle:    idle,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Close stops the sweeper.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.sweep(now)
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := now.Add(-rl.idle)
	for k, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
}

func (rl *RateLimiter) allow(ip string, write bool) bool {
	rl.mu.Lock()
	key := bucketKey{ip: ip, write: write}
	b, ok := rl.buckets[key]
	if !ok {
		limit := rl.read
		if write {
			limit = rl.write
		}
		b = &bucket{limiter: rate.NewLimiter(limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	rl.mu.Unlock()
	return b.limiter.Allow()
}

// Handler rejects requests over budget with 429. Probe and scrape endpoints
// are never limited.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unthrottled[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(ClientIPFromRequest(r), isWrite(r.Method)) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

var unthrottled = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
