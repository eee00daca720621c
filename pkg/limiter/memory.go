package limiter

import (
	"context"
	"sync"
	"time"

	"FitCoachAI/pkg/cache"
)

const maxTrackedClients = 10000

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Memory is an in-process token bucket. Each key holds up to capacity
// tokens, refilled linearly over window.
type Memory struct {
	mu       sync.Mutex
	buckets  *cache.Cache[*bucket]
	window   time.Duration
	capacity int
	now      func() time.Time
}

func NewMemory(capacity int, window time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Memory{
		// an idle bucket is full again after one window, so it can be dropped
		buckets:  cache.New[*bucket](maxTrackedClients, 2*window, window),
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: m.capacity, lastRefill: now}
	}
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		add := int(float64(m.capacity) * (float64(elapsed) / float64(m.window)))
		if add > 0 {
			b.tokens = min(b.tokens+add, m.capacity)
			b.lastRefill = now
		}
	}
	m.buckets.Set(key, b)

	res := Result{Limit: m.capacity}
	if b.tokens <= 0 {
		perToken := m.window / time.Duration(m.capacity)
		res.ResetIn = max(perToken-now.Sub(b.lastRefill), time.Second)
		return res, nil
	}
	b.tokens--
	res.Allowed = true
	res.Remaining = b.tokens
	res.ResetIn = m.window
	return res, nil
}

// Close stops the background sweep of idle buckets.
func (m *Memory) Close() {
	m.buckets.Close()
}
