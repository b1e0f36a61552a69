// Package ratelimiter implements per-key token buckets that expire after
// a period of inactivity.
package ratelimiter

import (
	"sync"
	"time"
)

// bucket is a token bucket for a single key
type bucket struct {
	tokens     float64
	capacity   float64
	rate       float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
	timer      *time.Timer
	key        string
	parent     *KeyedLimiter
}

// KeyedLimiter hands out one bucket per key (user id, ip)
type KeyedLimiter struct {
	buckets    map[string]*bucket
	mu         sync.RWMutex
	rate       float64
	capacity   float64
	expiration time.Duration
}

// New creates a limiter refilling rate tokens per second up to capacity.
// Buckets idle for longer than expiration are dropped.
func New(rate float64, capacity float64, expiration time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		buckets:    make(map[string]*bucket),
		rate:       rate,
		capacity:   capacity,
		expiration: expiration,
	}
}

// PerMinute allows n requests per minute with a burst of max(1, n).
func PerMinute(n float64) *KeyedLimiter {
	capacity := n
	if capacity < 1 {
		capacity = 1
	}
	return New(n/60, capacity, time.Hour)
}

func (kl *KeyedLimiter) remove(key string, b *bucket) {
	kl.mu.Lock()
	if kl.buckets[key] == b {
		delete(kl.buckets, key)
	}
	kl.mu.Unlock()
}

func (b *bucket) resetTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.parent.expiration, func() {
		b.parent.remove(b.key, b)
	})
}

func (kl *KeyedLimiter) get(key string) *bucket {
	kl.mu.RLock()
	b, exists := kl.buckets[key]
	kl.mu.RUnlock()

	if exists {
		b.resetTimer()
		return b
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists = kl.buckets[key]; exists {
		b.resetTimer()
		return b
	}

	b = &bucket{
		tokens:     kl.capacity,
		capacity:   kl.capacity,
		rate:       kl.rate,
		lastRefill: time.Now(),
		key:        key,
		parent:     kl,
	}
	kl.buckets[key] = b
	b.resetTimer()

	return b
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Allow takes one token from the bucket of key.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.get(key).allow()
}

// Len reports how many keys are tracked.
func (kl *KeyedLimiter) Len() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.buckets)
}

// Stop cancels all expiration timers
func (kl *KeyedLimiter) Stop() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	for _, b := range kl.buckets {
		b.mu.Lock()
		if b.timer != nil {
			b.timer.Stop()
		}
		b.mu.Unlock()
	}
}
