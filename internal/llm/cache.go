package llm

import "sync"

// ActiveCache holds the most recently validated candidate. It is advisory:
// an empty cache only costs a re-probe.
type ActiveCache interface {
	Get() (Candidate, bool)
	Set(c Candidate)
	Invalidate()
}

// MemoryCache is an in-process ActiveCache.
type MemoryCache struct {
	mu     sync.RWMutex
	active *Candidate
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get returns the cached candidate, if any.
func (m *MemoryCache) Get() (Candidate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return Candidate{}, false
	}
	return *m.active, true
}

// Set stores c. Last writer wins.
func (m *MemoryCache) Set(c Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = &c
}

// Invalidate clears the cache.
func (m *MemoryCache) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = nil
}
