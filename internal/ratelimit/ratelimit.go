// Package ratelimit implements a process-local token-bucket rate limiter
// keyed by (endpoint identifier, key), following the mutex-guarded
// map-of-lazily-created-state idiom used throughout the pack's FDWManager.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWindow and DefaultMax describe the limiter's default quota: 60
// requests per 60-second window.
const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 60
)

type bucketKey struct {
	endpoint string
	key      string
}

// Limiter holds one token bucket per (endpoint, key), created lazily and
// cached for the lifetime of the process.
type Limiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	max     int
	window  time.Duration
}

// New builds an empty Limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[bucketKey]*bucket)}
}

// Allow reports whether the call identified by (endpoint, key) fits within
// the configured quota. When it does not, retryAfter is the duration until
// the bucket next has capacity.
func (l *Limiter) Allow(endpoint, key string, max int, window time.Duration) (allowed bool, retryAfter time.Duration) {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}

	bk := bucketKey{endpoint: endpoint, key: key}

	l.mu.Lock()
	b, ok := l.buckets[bk]
	if !ok {
		ratePerSec := rate.Limit(float64(max) / window.Seconds())
		b = &bucket{
			limiter: rate.NewLimiter(ratePerSec, max),
			max:     max,
			window:  window,
		}
		l.buckets[bk] = b
	}
	l.mu.Unlock()

	reservation := b.limiter.Reserve()
	if !reservation.OK() {
		return false, window
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return true, 0
	}
	reservation.Cancel()
	return false, delay
}

// RetryAfterSeconds converts a retry-after duration into the ceil-seconds
// value the 429 response body and Retry-After header carry.
func RetryAfterSeconds(d time.Duration) int {
	seconds := math.Ceil(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return int(seconds)
}
