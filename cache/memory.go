package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a Memory cache created with a non-positive size.
const DefaultMaxEntries = 1000

// evictFraction is the share of entries dropped when the cache is full and
// nothing has expired.
const evictFraction = 0.2

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	createdAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a bounded in-process cache safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time

	hits, misses, evictions int64
}

// MemoryStats reports counters for a Memory cache.
type MemoryStats struct {
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
}

// NewMemory creates a Memory cache holding at most maxEntries items.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false, nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		m.misses++
		return nil, false, nil
	}
	m.hits++
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}

	e := memoryEntry{
		value:     append([]byte(nil), value...),
		createdAt: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns a snapshot of the cache counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStats{
		Entries:    len(m.entries),
		MaxEntries: m.maxEntries,
		Hits:       m.hits,
		Misses:     m.misses,
		Evictions:  m.evictions,
	}
}

// evictLocked drops expired entries first. If that frees nothing, the oldest
// evictFraction of entries go.
func (m *Memory) evictLocked(now time.Time) {
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			m.evictions++
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(m.entries))
	for k, e := range m.entries {
		all = append(all, aged{k, e.createdAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	n := int(float64(len(all)) * evictFraction)
	if n < 1 {
		n = 1
	}
	for _, a := range all[:n] {
		delete(m.entries, a.key)
		m.evictions++
	}
}
