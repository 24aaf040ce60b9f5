// Package ratelimiter throttles requests per key with a token bucket.
// It guards the credential endpoints against password guessing.
package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limiter config")

type Config struct {
	// Capacity is the burst size.
	Capacity int `env:"LOGIN_RATE_CAPACITY" envDefault:"10"`
	// RefillRate tokens are added every RefillInterval.
	RefillRate     int           `env:"LOGIN_RATE_REFILL" envDefault:"1"`
	RefillInterval time.Duration `env:"LOGIN_RATE_INTERVAL" envDefault:"30s"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 || c.RefillRate <= 0 || c.RefillInterval <= 0 {
		return fmt.Errorf("%w: capacity, refill rate and interval must be positive", ErrInvalidConfig)
	}
	return nil
}

type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time

	retryAfter time.Duration
}

func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return r.retryAfter
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Bucket keeps one token bucket per key in memory. Idle buckets that
// have refilled completely are dropped by Sweep.
type Bucket struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewBucket(cfg Config) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}, nil
}

// Allow consumes one token of key.
func (b *Bucket) Allow(_ context.Context, key string) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{tokens: b.cfg.Capacity, lastRefill: now}
		b.buckets[key] = bk
	}
	b.refill(bk, now)

	res := Result{Limit: b.cfg.Capacity, ResetAt: bk.lastRefill.Add(b.cfg.RefillInterval)}
	if bk.tokens == 0 {
		res.Remaining = -1
		res.retryAfter = res.ResetAt.Sub(now)
		return res
	}
	bk.tokens--
	res.Remaining = bk.tokens
	return res
}

func (b *Bucket) refill(bk *bucket, now time.Time) {
	intervals := int(now.Sub(bk.lastRefill) / b.cfg.RefillInterval)
	if intervals <= 0 {
		return
	}
	bk.tokens = min(b.cfg.Capacity, bk.tokens+intervals*b.cfg.RefillRate)
	bk.lastRefill = bk.lastRefill.Add(time.Duration(intervals) * b.cfg.RefillInterval)
}

// Sweep forgets full buckets and reports how many were removed.
func (b *Bucket) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	n := 0
	for key, bk := range b.buckets {
		b.refill(bk, now)
		if bk.tokens >= b.cfg.Capacity {
			delete(b.buckets, key)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (b *Bucket) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Sweep()
		}
	}
}

// KeyFunc picks the bucket of a request. An empty key is not limited.
type KeyFunc func(r *http.Request) string

// Middleware answers over-limit requests with onLimit after setting the
// X-RateLimit-* and Retry-After headers.
func Middleware(b *Bucket, key KeyFunc, onLimit http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res := b.Allow(r.Context(), k)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				secs := int((res.RetryAfter() + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				onLimit.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
