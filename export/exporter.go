package export

import (
	"context"
	"fmt"
	"time"

	"admin-service/apperr"
	"admin-service/logger"
	"admin-service/model"

	"github.com/google/uuid"
)

// Kind selects the archive layout.
type Kind string

const (
	// KindPosts stores original images at the archive root.
	KindPosts Kind = "posts"
	// KindMemes stores images, composited memes, details and manifests.
	KindMemes Kind = "memes"
)

// PostSource is the Selector's view of the post store.
type PostSource interface {
	FindInRange(ctx context.Context, start, end time.Time, flagged *bool) ([]model.PostRecord, error)
}

// AssetFetcher downloads the raw bytes behind an image URL.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Compositor burns captions into an image.
type Compositor interface {
	Compose(src []byte, post *model.PostRecord) ([]byte, error)
}

type Options struct {
	Concurrency int
	StagingDir  string
	ZipLevel    int
}

type Exporter struct {
	source     PostSource
	fetcher    AssetFetcher
	compositor Compositor
	opts       Options
	log        logger.Logger
}

func NewExporter(source PostSource, fetcher AssetFetcher, compositor Compositor, opts Options, log logger.Logger) *Exporter {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Exporter{
		source:     source,
		fetcher:    fetcher,
		compositor: compositor,
		opts:       opts,
		log:        log,
	}
}

// Request describes one export.
type Request struct {
	Kind    Kind
	Range   DateRange
	Flagged *bool
}

// Run is an export whose posts have been selected but whose archive has not
// been written yet.
type Run struct {
	ID      string
	Request Request
	Posts   []model.PostRecord

	exp *Exporter
	log logger.Logger
}

// Prepare runs the Selector. It fails with a not-found error when no post
// matches, before anything is written to the client.
func (e *Exporter) Prepare(ctx context.Context, req Request) (*Run, error) {
	posts, err := e.source.FindInRange(ctx, req.Range.Start, req.Range.End, req.Flagged)
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	if len(posts) == 0 {
		if req.Kind == KindMemes {
			return nil, apperr.NotFound("No memes found in this date range")
		}
		return nil, apperr.NotFound("No posts found within the specified date range")
	}

	id := uuid.NewString()
	log := e.log.With(
		logger.String("run_id", id),
		logger.String("kind", string(req.Kind)),
	)
	log.Info("Export prepared",
		logger.Time("start", req.Range.Start),
		logger.Time("end", req.Range.End),
		logger.Int("posts", len(posts)),
	)

	return &Run{ID: id, Request: req, Posts: posts, exp: e, log: log}, nil
}

// Filename is the attachment name sent in Content-Disposition.
func (r *Run) Filename() string {
	return fmt.Sprintf("%s_%s_to_%s.zip", r.Request.Kind, r.Request.Range.StartRaw, r.Request.Range.EndRaw)
}
