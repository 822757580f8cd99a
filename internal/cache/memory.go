// Package cache provides memo backends for computed trade metrics.
//
// MemoryMemo keeps entries in process. RedisMemo shares them through Redis and
// degrades to misses when Redis is unavailable. Both satisfy metrics.Memo.
package cache

import (
	"context"
	"sync"
	"time"

	"trade-journal/internal/models"
)

// DefaultTTL is how long memo entries live.
const DefaultTTL = 24 * time.Hour

type entry struct {
	auto    models.AutoCalculated
	expires time.Time
}

// MemoryMemo is an in-process memo with per-entry expiry.
type MemoryMemo struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryMemo creates an in-process memo. A non-positive ttl means entries
// never expire; a non-positive maxEntries means no size limit.
func NewMemoryMemo(ttl time.Duration, maxEntries int) *MemoryMemo {
	return &MemoryMemo{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the entry under key if present and not expired.
func (m *MemoryMemo) Get(ctx context.Context, key string) (models.AutoCalculated, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.AutoCalculated{}, false, err
	}
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return models.AutoCalculated{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return models.AutoCalculated{}, false, nil
	}
	return e.auto, true, nil
}

// Set stores auto under key. When the memo is full, expired entries are
// purged first and then the soonest-expiring entry is evicted.
func (m *MemoryMemo) Set(ctx context.Context, key string, auto models.AutoCalculated) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{auto: auto}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.purgeLocked()
		if len(m.entries) >= m.maxEntries {
			m.evictLocked()
		}
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryMemo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Purge drops expired entries.
func (m *MemoryMemo) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
}

// Clear drops every entry.
func (m *MemoryMemo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

func (m *MemoryMemo) purgeLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

func (m *MemoryMemo) evictLocked() {
	var victim string
	var soonest time.Time
	for k, e := range m.entries {
		if victim == "" || e.expires.Before(soonest) || (e.expires.Equal(soonest) && k < victim) {
			victim, soonest = k, e.expires
		}
	}
	delete(m.entries, victim)
}
