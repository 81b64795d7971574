package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduplicator keeps delivered keys in process memory. Entries expire after their
// ttl and the oldest entry is evicted once maxEntries is reached.
type MemoryDeduplicator struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	order      []string
	maxEntries int
	now        func() time.Time
}

func NewMemoryDeduplicator(maxEntries int) *MemoryDeduplicator {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryDeduplicator{
		entries:    make(map[string]time.Time),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (d *MemoryDeduplicator) FirstSeen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expiresAt, ok := d.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}

	d.evict(now)
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = now.Add(ttl)
	return true, nil
}

func (d *MemoryDeduplicator) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key]; !ok {
		return nil
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of tracked keys, expired ones included until evicted.
func (d *MemoryDeduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// evict drops expired keys from the front of the insertion order, then the oldest keys
// while the cache is full. Caller holds d.mu.
func (d *MemoryDeduplicator) evict(now time.Time) {
	i := 0
	for ; i < len(d.order); i++ {
		key := d.order[i]
		expiresAt, ok := d.entries[key]
		if ok && now.Before(expiresAt) && len(d.entries) < d.maxEntries {
			break
		}
		delete(d.entries, key)
	}
	d.order = d.order[i:]
}
