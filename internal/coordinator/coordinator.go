// SPDX-License-Identifier: AGPL-3.0-only
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fluffyriot/screengrabx/internal/cache"
	"github.com/fluffyriot/screengrabx/internal/fetcher"
	"github.com/fluffyriot/screengrabx/internal/helpers"
	"github.com/fluffyriot/screengrabx/internal/mosaic"
	"github.com/fluffyriot/screengrabx/internal/renderer"
	"github.com/fluffyriot/screengrabx/internal/stats"
)

// mediaSuffix keys the mosaic variant of a post in the cache, beside
// the main screenshot artifact.
const mediaSuffix = "-media"

// PostFetcher is the upstream client surface the coordinator drives.
type PostFetcher interface {
	FetchPost(ctx context.Context, account, statusID string) (*fetcher.Post, error)
	FetchImage(ctx context.Context, url string) (image.Image, error)
}

// ArtifactRenderer produces the snapshot artifact for a post.
type ArtifactRenderer interface {
	Render(ctx context.Context, post *fetcher.Post, renderURL, imageURL string) (*renderer.Artifact, error)
}

type Config struct {
	TTL          time.Duration
	StaleCeiling time.Duration
	PublicHost   string
	InternalBase string
	MosaicWidth  int
}

// Coordinator owns the fetch → render → cache pipeline. All mutation
// for one identifier funnels through a singleflight group, so N
// concurrent requests for an uncached post cost exactly one upstream
// call and one render.
type Coordinator struct {
	store    cache.Store
	fetcher  PostFetcher
	renderer ArtifactRenderer
	stats    *stats.Collector
	logger   *zap.Logger
	cfg      Config

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]*fetcher.Post
}

func New(store cache.Store, pf PostFetcher, ar ArtifactRenderer, collector *stats.Collector, logger *zap.Logger, cfg Config) *Coordinator {
	if cfg.MosaicWidth <= 0 {
		cfg.MosaicWidth = 1200
	}
	return &Coordinator{
		store:    store,
		fetcher:  pf,
		renderer: ar,
		stats:    collector,
		logger:   logger,
		cfg:      cfg,
		pending:  make(map[string]*fetcher.Post),
	}
}

// Result is a servable outcome. Stale marks an expired entry handed
// out because the refresh behind it failed.
type Result struct {
	Entry *cache.Entry
	Stale bool
}

// GetPreview returns the artifact for a post, filling the cache if
// needed. The fill runs on a context detached from the request so a
// crawler hanging up early never wastes the work for later joiners.
func (c *Coordinator) GetPreview(ctx context.Context, account, statusID string) (*Result, error) {

	if err := fetcher.ValidateIdentifier(account, statusID); err != nil {
		return nil, err
	}
	c.stats.Served()

	now := time.Now()
	entry, err := c.store.Get(ctx, account, statusID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	if entry != nil && entry.Fresh(now) {
		c.stats.CacheHit()
		return &Result{Entry: entry}, nil
	}
	c.stats.CacheMiss()

	id := account + "/" + statusID
	fillCtx := context.WithoutCancel(ctx)
	v, fillErr, _ := c.group.Do(id, func() (interface{}, error) {
		return c.fill(fillCtx, account, statusID)
	})
	if fillErr == nil {
		return &Result{Entry: v.(*cache.Entry)}, nil
	}

	// Refresh failed. A stale entry inside the ceiling beats an error
	// page, except for a confirmed NotFound where the post is gone.
	if entry != nil && !errors.Is(fillErr, fetcher.ErrNotFound) && entry.Servable(now, c.cfg.StaleCeiling) {
		c.stats.StaleServe()
		c.logger.Warn("serving stale artifact after failed refresh",
			zap.String("identifier", id), zap.Error(fillErr))
		return &Result{Entry: entry, Stale: true}, nil
	}

	c.stats.Error()
	return nil, fillErr
}

// fill performs one fetch+render sequence and writes the cache. Runs
// at most once per identifier at a time, under the singleflight group.
func (c *Coordinator) fill(ctx context.Context, account, statusID string) (*cache.Entry, error) {

	// A joiner that queued behind a completed flight gets the fresh
	// entry without another round trip.
	if entry, err := c.store.Get(ctx, account, statusID); err == nil && entry != nil && entry.Fresh(time.Now()) {
		return entry, nil
	}

	post, err := c.fetchWithRetry(ctx, account, statusID)
	if err != nil {
		return nil, err
	}

	id := account + "/" + statusID
	c.setPending(id, post)
	defer c.clearPending(id)

	renderURL := fmt.Sprintf("%s/render/%s/status/%s", c.cfg.InternalBase, account, statusID)
	imageURL := fmt.Sprintf("%s/renders/%s", c.cfg.PublicHost, helpers.RenderName(account, statusID))

	artifact, err := c.renderWithRetry(ctx, post, renderURL, imageURL)
	if err != nil {
		return nil, err
	}
	c.stats.Render()

	entry := &cache.Entry{
		Account:     account,
		StatusID:    statusID,
		Meta:        artifact.Meta,
		Image:       artifact.Image,
		ContentType: artifact.ContentType,
	}
	if err := c.store.Put(ctx, entry, c.cfg.TTL); err != nil {
		return nil, fmt.Errorf("cache write failed: %w", err)
	}

	// The mosaic variant is a bonus, its failure never fails the fill.
	if err := c.buildMediaMosaic(ctx, post); err != nil {
		c.logger.Warn("media mosaic skipped", zap.String("identifier", id), zap.Error(err))
	}

	return entry, nil
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, account, statusID string) (*fetcher.Post, error) {
	var post *fetcher.Post

	op := func() error {
		p, err := c.fetcher.FetchPost(ctx, account, statusID)
		if err != nil {
			if errors.Is(err, fetcher.ErrNotFound) || errors.Is(err, fetcher.ErrInvalidStatus) {
				return backoff.Permanent(err)
			}
			return err
		}
		post = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx)); err != nil {
		return nil, err
	}
	return post, nil
}

// renderWithRetry gives the engine a second chance. Both a timeout and
// an engine crash are worth one more attempt, a second failure is
// terminal for this fill.
func (c *Coordinator) renderWithRetry(ctx context.Context, post *fetcher.Post, renderURL, imageURL string) (*renderer.Artifact, error) {
	artifact, err := c.renderer.Render(ctx, post, renderURL, imageURL)
	if err == nil {
		return artifact, nil
	}
	c.logger.Warn("render failed, retrying once",
		zap.String("identifier", post.Identifier()), zap.Error(err))

	return c.renderer.Render(ctx, post, renderURL, imageURL)
}

func (c *Coordinator) buildMediaMosaic(ctx context.Context, post *fetcher.Post) error {
	var urls []string
	for _, m := range post.Media {
		if m.Type == "image" {
			urls = append(urls, m.URL)
		}
	}
	if len(urls) < 2 {
		return nil
	}

	imgs := make([]image.Image, 0, len(urls))
	for _, u := range urls {
		img, err := c.fetcher.FetchImage(ctx, u)
		if err != nil {
			return err
		}
		imgs = append(imgs, img)
	}

	composed, err := mosaic.Compose(imgs, c.cfg.MosaicWidth, 10)
	if err != nil {
		return err
	}
	data, err := renderer.EncodeImage(composed)
	if err != nil {
		return err
	}

	entry := &cache.Entry{
		Account:     post.Account,
		StatusID:    post.StatusID + mediaSuffix,
		Image:       data,
		ContentType: "image/webp",
		Meta:        renderer.BuildMeta(post, ""),
	}
	return c.store.Put(ctx, entry, c.cfg.TTL)
}

// GetCached returns whatever the store still holds for a post without
// triggering a fill. Backs the image URL referenced from embed pages,
// where a stale snapshot beats a broken link.
func (c *Coordinator) GetCached(ctx context.Context, account, statusID string) (*cache.Entry, error) {
	if err := fetcher.ValidateIdentifier(account, statusID); err != nil {
		return nil, err
	}
	entry, err := c.store.Get(ctx, account, statusID)
	if err != nil || entry == nil {
		return nil, err
	}
	if !entry.Servable(time.Now(), c.cfg.StaleCeiling) {
		return nil, nil
	}
	return entry, nil
}

// GetMedia returns the cached mosaic variant, if one was built. It is
// never filled on demand, the fill happens beside the main artifact.
func (c *Coordinator) GetMedia(ctx context.Context, account, statusID string) (*cache.Entry, error) {
	if err := fetcher.ValidateIdentifier(account, statusID); err != nil {
		return nil, err
	}
	return c.store.Get(ctx, account, statusID+mediaSuffix)
}

// PendingPost exposes the post currently being rendered so the internal
// render page can lay it out without a second upstream call.
func (c *Coordinator) PendingPost(account, statusID string) (*fetcher.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	post, ok := c.pending[account+"/"+statusID]
	return post, ok
}

func (c *Coordinator) setPending(id string, post *fetcher.Post) {
	c.mu.Lock()
	c.pending[id] = post
	c.mu.Unlock()
}

func (c *Coordinator) clearPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
