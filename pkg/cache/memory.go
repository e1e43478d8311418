package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type counter struct {
	count   int64
	resetAt time.Time
}

// Memory is a process-local Store. Entries are capped by an LRU bound and expire
// after their own TTL or the store-wide maximum, whichever comes first.
type Memory struct {
	values *expirable.LRU[string, entry]

	mu       sync.Mutex
	counters *expirable.LRU[string, *counter]

	now func() time.Time
}

// NewMemory creates a memory store holding at most maxEntries values and counters.
func NewMemory(maxEntries int, maxTTL time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Memory{
		values:   expirable.NewLRU[string, entry](maxEntries, nil, maxTTL),
		counters: expirable.NewLRU[string, *counter](maxEntries, nil, 0),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.values.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.values.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.values.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.values.Remove(k)
		m.counters.Remove(k)
	}
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range m.values.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.values.Remove(k)
		}
	}
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.counters.Get(key)
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		m.counters.Add(key, c)
	}
	c.count++
	return c.count, nil
}

func (m *Memory) Close() error {
	m.values.Purge()
	m.counters.Purge()
	return nil
}
