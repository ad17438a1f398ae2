package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fluffyriot/screengrabx/internal/fetcher"
)

var (
	// ErrRenderTimeout means the engine blew its deadline. Recoverable,
	// the coordinator may retry once.
	ErrRenderTimeout = errors.New("renderer: render timed out")
	// ErrEngineFailure means the engine crashed or returned garbage.
	ErrEngineFailure = errors.New("renderer: engine failure")
)

// Artifact is the rendered output for one post: the snapshot image plus
// the textual meta fields the embed page is built from.
type Artifact struct {
	Image       []byte
	ContentType string
	Meta        MetaFields
}

// Engine captures a page at the given viewport width and returns PNG
// bytes. Implemented by ChromeEngine in production and by stubs in
// tests.
type Engine interface {
	Capture(ctx context.Context, url string, width int) ([]byte, error)
}

// Renderer drives the engine through a fixed-size worker pool so a
// burst of requests cannot spawn unbounded Chrome work. Each job runs
// under a hard timeout.
type Renderer struct {
	engine  Engine
	logger  *zap.Logger
	sem     chan struct{}
	timeout time.Duration
	width   int
}

func New(engine Engine, logger *zap.Logger, workers int, timeout time.Duration, width int) *Renderer {
	if workers < 1 {
		workers = 1
	}
	return &Renderer{
		engine:  engine,
		logger:  logger,
		sem:     make(chan struct{}, workers),
		timeout: timeout,
		width:   width,
	}
}

// Render produces the artifact for a post. renderURL is the internal
// page laying the post out, the engine screenshots it. Meta fields are
// computed purely from the post and carry the full text.
func (r *Renderer) Render(ctx context.Context, post *fetcher.Post, renderURL, imageURL string) (*Artifact, error) {

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: queueing: %v", ErrRenderTimeout, ctx.Err())
	}
	defer func() { <-r.sem }()

	jobCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	png, err := r.engine.Capture(jobCtx, renderURL, r.width)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", ErrRenderTimeout, time.Since(started))
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	if len(png) == 0 {
		return nil, fmt.Errorf("%w: empty capture", ErrEngineFailure)
	}

	img, err := encodeWebP(png)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrEngineFailure, err)
	}

	r.logger.Debug("rendered post",
		zap.String("identifier", post.Identifier()),
		zap.Int("bytes", len(img)),
		zap.Duration("took", time.Since(started)))

	return &Artifact{
		Image:       img,
		ContentType: "image/webp",
		Meta:        BuildMeta(post, imageURL),
	}, nil
}
