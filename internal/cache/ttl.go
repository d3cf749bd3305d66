package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TTL is an in-process cache with a per-entry time to live.
// Expired entries are removed lazily on access; Sweep exists for memory hygiene only.
// There is no size bound: the key space is small and enumerable.
type TTL[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]
	now  func() time.Time
}

type entry[V any] struct {
	val      V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

type Option[V any] func(*TTL[V])

// WithClock replaces time.Now, tests use it to move time forward.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(t *TTL[V]) { t.now = now }
}

func NewTTL[V any](opts ...Option[V]) *TTL[V] {
	t := &TTL[V]{data: make(map[string]entry[V]), now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
// An expired entry is deleted by the lookup.
func (t *TTL[V]) Get(k string) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(t.now()) {
		t.mu.Lock()
		// Re-check, a concurrent Set may have replaced it.
		if cur, ok := t.data[k]; ok && cur.expired(t.now()) {
			delete(t.data, k)
		}
		t.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.val, true
}

func (t *TTL[V]) Has(k string) bool {
	_, ok := t.Get(k)
	return ok
}

// Set stores v under k, replacing any existing entry.
func (t *TTL[V]) Set(k string, v V, ttl time.Duration) {
	t.mu.Lock()
	t.data[k] = entry[V]{val: v, storedAt: t.now(), ttl: ttl}
	t.mu.Unlock()
}

func (t *TTL[V]) Invalidate(k string) {
	t.mu.Lock()
	delete(t.data, k)
	t.mu.Unlock()
}

// InvalidatePattern removes every key containing substr and returns how many were removed.
func (t *TTL[V]) InvalidatePattern(substr string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k := range t.data {
		if strings.Contains(k, substr) {
			delete(t.data, k)
			n++
		}
	}
	return n
}

func (t *TTL[V]) Clear() {
	t.mu.Lock()
	t.data = make(map[string]entry[V])
	t.mu.Unlock()
}

// Len counts stored entries, expired ones included until they are touched or swept.
func (t *TTL[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}

// Sweep drops all expired entries and returns the number dropped.
func (t *TTL[V]) Sweep() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, e := range t.data {
		if e.expired(now) {
			delete(t.data, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done. This is a blocking call.
func (t *TTL[V]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Lookup is a typed Get over a heterogeneous cache. A stored value of another type is a miss.
func Lookup[T any](c *TTL[any], k string) (T, bool) {
	var zero T
	v, ok := c.Get(k)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	if !ok {
		return zero, false
	}
	return out, true
}
