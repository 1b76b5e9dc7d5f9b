// Package cache provides the artifact cache collaborator: a blob store
// keyed by the exact export selection tuple. A cache entry is only ever
// returned for a request whose criteria match the stored tuple; there is no
// partial or fuzzy matching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Criteria is the cache key tuple. ContentType here is the normalized
// content type of the artifact being stored, or the caller's preferred
// content type on probe.
type Criteria struct {
	DesignID     string `json:"design_id"`
	ExportKind   string `json:"export_kind"`
	NameContains string `json:"name_contains"`
	ContentType  string `json:"content_type"`
}

// Key returns the content-addressed storage key for the criteria tuple.
func (c Criteria) Key() string {
	h := sha256.New()
	for _, part := range []string{c.DesignID, c.ExportKind, c.NameContains, c.ContentType} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Artifact is a cached (or freshly computed) export payload.
type Artifact struct {
	Bytes       []byte `json:"bytes"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// Cache is the artifact cache contract. Get is a read-only probe; Put may
// fail silently from the caller's perspective (failures are logged by the
// resolver, never surfaced).
type Cache interface {
	Get(ctx context.Context, c Criteria) (Artifact, bool, error)
	Put(ctx context.Context, c Criteria, a Artifact) error
}

// memoryEntry is one cached artifact with its write time.
type memoryEntry struct {
	artifact Artifact
	storedAt time.Time
}

// MemoryCache is the default in-process cache backend: a TTL map with a
// background sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryCache creates an in-memory cache. A non-positive ttl means
// entries never expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
	if ttl > 0 {
		go c.sweep()
	}
	return c
}

func (m *MemoryCache) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for k, e := range m.entries {
			if now.Sub(e.storedAt) > m.ttl {
				delete(m.entries, k)
			}
		}
		m.mu.Unlock()
	}
}

func (m *MemoryCache) Get(_ context.Context, c Criteria) (Artifact, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[c.Key()]
	m.mu.RUnlock()

	if !ok {
		return Artifact{}, false, nil
	}
	if m.ttl > 0 && time.Since(entry.storedAt) > m.ttl {
		return Artifact{}, false, nil
	}
	return entry.artifact, true, nil
}

func (m *MemoryCache) Put(_ context.Context, c Criteria, a Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c.Key()] = memoryEntry{artifact: a, storedAt: time.Now()}
	return nil
}
