package ratelimit

import (
	"sync"
	"time"
)

// Message-send budget per user: a full bucket of 10 tokens refilled at 10
// tokens per second. Buckets are ephemeral and never persisted.
const (
	bucketCapacity = 10
	refillInterval = 100 * time.Millisecond
	refillAmount   = 1
)

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

func newTokenBucket(now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     bucketCapacity,
		lastRefill: now,
	}
}

func (tb *tokenBucket) consume(now time.Time) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed/refillInterval) * refillAmount
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > bucketCapacity {
			tb.tokens = bucketCapacity
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimiter bounds per-user message throughput with a token bucket per
// user id.
type RateLimiter struct {
	buckets map[string]*tokenBucket
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Consume takes one token from the user's bucket. A false return means the
// caller must be answered with a retryable throttling error and nothing may
// be persisted.
func (rl *RateLimiter) Consume(userID string) bool {
	now := rl.now()

	rl.mutex.RLock()
	bucket, exists := rl.buckets[userID]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[userID]; !exists {
			bucket = newTokenBucket(now)
			rl.buckets[userID] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.consume(now)
}

// Cleanup drops buckets idle for over an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill) > time.Hour
		bucket.mutex.Unlock()
		if idle {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
