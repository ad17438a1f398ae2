package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemStore keeps entries purely in memory. It backs two things: tests,
// and the degraded mode the service drops into when Postgres is gone.
// Capacity eviction inside ttlcache is recency-based, which matches
// the least-recently-served policy since Get touches the item.
type MemStore struct {
	entries      *ttlcache.Cache[string, *Entry]
	staleCeiling time.Duration
}

func NewMemStore(capacity uint64, staleCeiling time.Duration) *MemStore {
	c := ttlcache.New(
		ttlcache.WithCapacity[string, *Entry](capacity),
	)
	go c.Start()

	return &MemStore{entries: c, staleCeiling: staleCeiling}
}

func (s *MemStore) Get(ctx context.Context, account, statusID string) (*Entry, error) {
	item := s.entries.Get(account + "/" + statusID)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

func (s *MemStore) Put(ctx context.Context, entry *Entry, ttl time.Duration) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(ttl)

	// Items live past their freshness window so expired entries are
	// still around for stale-serve. Entry.ExpiresAt carries the real
	// freshness boundary.
	s.entries.Set(entry.Identifier(), entry, ttl+s.staleCeiling)
	return nil
}

func (s *MemStore) Invalidate(ctx context.Context, account, statusID string) error {
	s.entries.Delete(account + "/" + statusID)
	return nil
}

func (s *MemStore) Close() error {
	s.entries.Stop()
	return nil
}
