package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fluffyriot/screengrabx/internal/renderer"
)

// ErrUnavailable reports that durable storage could not be reached at
// all, including the in-memory fallback path.
var ErrUnavailable = errors.New("cache: store unavailable")

// Entry is one cached artifact with its freshness metadata. Entries are
// immutable once written, a refresh replaces the whole row.
type Entry struct {
	Account     string
	StatusID    string
	Meta        renderer.MetaFields
	Image       []byte
	ContentType string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (e *Entry) Identifier() string {
	return e.Account + "/" + e.StatusID
}

// Fresh reports whether the entry may be served as-is.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Servable reports whether an expired entry is still inside the stale
// ceiling and usable as a fallback when a refresh fails.
func (e *Entry) Servable(now time.Time, staleCeiling time.Duration) bool {
	return now.Before(e.ExpiresAt.Add(staleCeiling))
}

// Store persists rendered artifacts keyed by account/status pair.
//
// Get returns (nil, nil) on a clean miss. An expired entry is still
// returned so the caller can decide between refresh and stale-serve.
// Implementations must be safe for concurrent use and must never
// expose a partially written artifact.
type Store interface {
	Get(ctx context.Context, account, statusID string) (*Entry, error)
	Put(ctx context.Context, entry *Entry, ttl time.Duration) error
	Invalidate(ctx context.Context, account, statusID string) error
	Close() error
}
