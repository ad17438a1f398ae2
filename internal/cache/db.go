package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/fluffyriot/screengrabx/internal/helpers"
)

const hotTTL = 10 * time.Minute

// DBStore is the durable store: artifact bytes on disk under the cache
// directory, index rows in Postgres. A ttlcache layer keeps recently
// served bytes in memory and a MemStore absorbs everything while the
// database is unreachable, so a storage outage degrades instead of
// failing every request.
type DBStore struct {
	db           *sql.DB
	dir          string
	maxBytes     int64
	staleCeiling time.Duration
	hot          *ttlcache.Cache[string, []byte]
	fallback     *MemStore
	logger       *zap.Logger
	degraded     atomic.Bool
}

func NewDBStore(db *sql.DB, dir string, maxBytes int64, staleCeiling time.Duration, logger *zap.Logger) (*DBStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	hot := ttlcache.New(
		ttlcache.WithTTL[string, []byte](hotTTL),
		ttlcache.WithCapacity[string, []byte](512),
	)
	go hot.Start()

	return &DBStore{
		db:           db,
		dir:          dir,
		maxBytes:     maxBytes,
		staleCeiling: staleCeiling,
		hot:          hot,
		fallback:     NewMemStore(256, staleCeiling),
		logger:       logger,
	}, nil
}

func (s *DBStore) noteDegraded(op string, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("cache store degraded, serving from memory only",
			zap.String("op", op), zap.Error(err))
	}
}

func (s *DBStore) noteRecovered() {
	if s.degraded.CompareAndSwap(true, false) {
		s.logger.Info("cache store recovered")
	}
}

func (s *DBStore) artifactPath(account, statusID string) string {
	return filepath.Join(s.dir, helpers.RenderName(account, statusID))
}

func (s *DBStore) Get(ctx context.Context, account, statusID string) (*Entry, error) {

	row := s.db.QueryRowContext(ctx,
		`SELECT cached_at, expires_at, content_type, meta
		   FROM screengrabs WHERE account_name = $1 AND status_id = $2`,
		account, statusID)

	var (
		entry    = Entry{Account: account, StatusID: statusID}
		metaJSON []byte
	)
	err := row.Scan(&entry.CreatedAt, &entry.ExpiresAt, &entry.ContentType, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		s.noteRecovered()
		return nil, nil
	}
	if err != nil {
		s.noteDegraded("get", err)
		return s.fallback.Get(ctx, account, statusID)
	}
	s.noteRecovered()

	if err := json.Unmarshal(metaJSON, &entry.Meta); err != nil {
		// A corrupt row is useless, drop it so the next request refills.
		_ = s.Invalidate(ctx, account, statusID)
		return nil, nil
	}

	key := entry.Identifier()
	if item := s.hot.Get(key); item != nil {
		entry.Image = item.Value()
	} else {
		data, err := os.ReadFile(s.artifactPath(account, statusID))
		if err != nil {
			s.logger.Warn("cache index row without artifact file",
				zap.String("identifier", key), zap.Error(err))
			_ = s.Invalidate(ctx, account, statusID)
			return nil, nil
		}
		entry.Image = data
		s.hot.Set(key, data, ttlcache.DefaultTTL)
	}

	// Bump recency for LRU eviction. Best effort, a failed bump must
	// not fail the read.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE screengrabs SET last_served_at = $1 WHERE account_name = $2 AND status_id = $3`,
		time.Now().UTC(), account, statusID); err != nil {
		s.logger.Debug("failed to bump last_served_at", zap.Error(err))
	}

	return &entry, nil
}

func (s *DBStore) Put(ctx context.Context, entry *Entry, ttl time.Duration) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(ttl)

	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	// Write-then-rename so a concurrent reader never sees a torn file.
	path := s.artifactPath(entry.Account, entry.StatusID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, entry.Image, 0o644); err != nil {
		s.noteDegraded("put", err)
		return s.fallback.Put(ctx, entry, ttl)
	}
	if err := os.Rename(tmp, path); err != nil {
		s.noteDegraded("put", err)
		return s.fallback.Put(ctx, entry, ttl)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO screengrabs
		   (account_name, status_id, cached_at, expires_at, last_served_at, byte_size, content_type, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (account_name, status_id) DO UPDATE SET
		   cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at,
		   last_served_at = EXCLUDED.last_served_at,
		   byte_size = EXCLUDED.byte_size,
		   content_type = EXCLUDED.content_type,
		   meta = EXCLUDED.meta`,
		entry.Account, entry.StatusID, entry.CreatedAt, entry.ExpiresAt, entry.CreatedAt,
		int64(len(entry.Image)), entry.ContentType, metaJSON)
	if err != nil {
		s.noteDegraded("put", err)
		return s.fallback.Put(ctx, entry, ttl)
	}
	s.noteRecovered()

	s.hot.Set(entry.Identifier(), entry.Image, ttlcache.DefaultTTL)

	if err := s.evict(ctx); err != nil {
		s.logger.Warn("cache eviction failed", zap.Error(err))
	}

	return nil
}

// evict removes least-recently-served entries until the artifact bytes
// fit the configured bound again.
func (s *DBStore) evict(ctx context.Context) error {
	for {
		var total sql.NullInt64
		if err := s.db.QueryRowContext(ctx,
			`SELECT SUM(byte_size) FROM screengrabs`).Scan(&total); err != nil {
			return err
		}
		if !total.Valid || total.Int64 <= s.maxBytes {
			return nil
		}

		var account, statusID string
		err := s.db.QueryRowContext(ctx,
			`SELECT account_name, status_id FROM screengrabs
			  ORDER BY last_served_at ASC LIMIT 1`).Scan(&account, &statusID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		s.logger.Info("evicting cache entry",
			zap.String("identifier", account+"/"+statusID), zap.Int64("total_bytes", total.Int64))
		if err := s.Invalidate(ctx, account, statusID); err != nil {
			return err
		}
	}
}

func (s *DBStore) Invalidate(ctx context.Context, account, statusID string) error {
	s.hot.Delete(account + "/" + statusID)
	_ = s.fallback.Invalidate(ctx, account, statusID)

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM screengrabs WHERE account_name = $1 AND status_id = $2`,
		account, statusID); err != nil {
		return fmt.Errorf("failed to delete cache row: %w", err)
	}

	if err := os.Remove(s.artifactPath(account, statusID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact file: %w", err)
	}
	return nil
}

// Sweep removes entries that aged past the stale ceiling and artifact
// files that lost their index row. Returns how many entries went away.
func (s *DBStore) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleCeiling)

	rows, err := s.db.QueryContext(ctx,
		`SELECT account_name, status_id FROM screengrabs WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired entries: %w", err)
	}
	type ident struct{ account, statusID string }
	var expired []ident
	for rows.Next() {
		var id ident
		if err := rows.Scan(&id.account, &id.statusID); err != nil {
			rows.Close()
			return 0, err
		}
		expired = append(expired, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range expired {
		if err := s.Invalidate(ctx, id.account, id.statusID); err != nil {
			return removed, err
		}
		removed++
	}

	orphans, err := s.sweepOrphans(ctx)
	if err != nil {
		return removed, err
	}
	return removed + orphans, nil
}

// sweepOrphans deletes .webp files in the cache dir that have no index
// row, left behind by a crash between file write and row upsert.
func (s *DBStore) sweepOrphans(ctx context.Context) (int, error) {
	names, err := filepath.Glob(filepath.Join(s.dir, "*.webp"))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range names {
		account, statusID, ok := helpers.SplitRenderName(filepath.Base(path))
		if !ok {
			continue
		}
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM screengrabs WHERE account_name = $1 AND status_id = $2)`,
			account, statusID).Scan(&exists)
		if err != nil {
			return removed, err
		}
		if exists {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *DBStore) Close() error {
	s.hot.Stop()
	_ = s.fallback.Close()
	return s.db.Close()
}
