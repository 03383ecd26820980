package export

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"admin-service/apperr"
	"admin-service/logger"
	"admin-service/metrics"
	"admin-service/model"

	"golang.org/x/sync/errgroup"
)

var errAborted = errors.New("archive aborted")

// entry is one file in the archive, either staged on disk or held in memory.
type entry struct {
	name string
	path string
	data []byte
}

type outcomeStatus int

const (
	outcomeSkipped outcomeStatus = iota
	outcomeOK
	outcomeFailed
)

func (s outcomeStatus) String() string {
	switch s {
	case outcomeOK:
		return "success"
	case outcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

type outcome struct {
	status outcomeStatus
	err    error
}

// Stream writes the archive to w. Per-post fetch and composite work runs on a
// bounded pool; finished payloads go through a channel to the only goroutine
// writing zip entries. The staging directory is removed after that goroutine
// has exited, whatever the result.
//
// A returned error is always an archive error: per-post failures are only
// recorded in the summary.
func (r *Run) Stream(ctx context.Context, w io.Writer) (summary model.ExportSummary, err error) {
	started := time.Now()
	kind := string(r.Request.Kind)
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ExportRunsTotal.WithLabelValues(kind, status).Inc()
		metrics.ExportDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	staging, err := os.MkdirTemp(r.exp.opts.StagingDir, "export-"+r.ID+"-")
	if err != nil {
		return summary, apperr.Wrap(apperr.KindArchive, err, "create staging directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			r.log.Warn("Failed to remove staging directory",
				logger.String("dir", staging), logger.Error(rmErr))
			return
		}
		r.log.Debug("Removed staging directory", logger.String("dir", staging))
	}()

	zw := zip.NewWriter(w)
	level := r.exp.opts.ZipLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	if r.Request.Kind == KindMemes {
		meta, err := Metadata(r.Posts)
		if err != nil {
			return summary, apperr.Wrap(apperr.KindArchive, err, "build metadata")
		}
		for _, en := range []entry{
			{name: "metadata.json", data: meta},
			{name: "captions.csv", data: CaptionsCSV(r.Posts)},
		} {
			if err := writeEntry(zw, en); err != nil {
				return summary, apperr.Wrap(apperr.KindArchive, err, "write "+en.name)
			}
		}
	}

	payloads := make(chan []entry)
	stop := make(chan struct{})
	writerDone := make(chan error, 1)
	go func() {
		var werr error
		for p := range payloads {
			if werr != nil {
				continue
			}
			for _, en := range p {
				if err := writeEntry(zw, en); err != nil {
					werr = err
					close(stop)
					break
				}
			}
		}
		writerDone <- werr
	}()

	outcomes := make([]outcome, len(r.Posts))
	var g errgroup.Group
	g.SetLimit(r.exp.opts.Concurrency)
	for i := range r.Posts {
		g.Go(func() error {
			outcomes[i] = r.process(ctx, staging, &r.Posts[i], payloads, stop)
			metrics.ExportPostsTotal.WithLabelValues(kind, outcomes[i].status.String()).Inc()
			return nil
		})
	}
	_ = g.Wait()
	close(payloads)

	if werr := <-writerDone; werr != nil {
		return summary, apperr.Wrap(apperr.KindArchive, werr, "write archive entry")
	}

	summary, skipped := summarize(r.Posts, outcomes)
	data, err := SummaryJSON(summary)
	if err != nil {
		return summary, apperr.Wrap(apperr.KindArchive, err, "build summary")
	}
	if err := writeEntry(zw, entry{name: "summary.json", data: data}); err != nil {
		return summary, apperr.Wrap(apperr.KindArchive, err, "write summary.json")
	}
	if err := zw.Close(); err != nil {
		return summary, apperr.Wrap(apperr.KindArchive, err, "finalize archive")
	}

	r.log.Info("Export finished",
		logger.Int("successful", summary.Successful),
		logger.Int("failed", summary.Failed),
		logger.Int("skipped", skipped),
		logger.Duration("duration", time.Since(started)),
	)
	return summary, nil
}

// process fetches, stages and (for meme exports) composites one post, then
// hands the resulting entries to the archive writer.
func (r *Run) process(ctx context.Context, staging string, p *model.PostRecord, payloads chan<- []entry, stop <-chan struct{}) outcome {
	postID := p.ID.Hex()
	if p.Image == "" {
		r.log.Debug("Post has no image, skipping", logger.String("post_id", postID))
		return outcome{status: outcomeSkipped}
	}

	select {
	case <-stop:
		return outcome{status: outcomeFailed, err: errAborted}
	default:
	}

	name := FilenameFor(p)
	data, err := r.exp.fetcher.Fetch(ctx, p.Image)
	if err != nil {
		r.log.Warn("Image download failed",
			logger.String("post_id", postID),
			logger.String("stage", "fetch"),
			logger.String("url", p.Image),
			logger.Error(err),
		)
		return outcome{status: outcomeFailed, err: err}
	}

	original := filepath.Join(staging, name)
	if err := os.WriteFile(original, data, 0o600); err != nil {
		r.log.Error("Failed to stage image",
			logger.String("post_id", postID),
			logger.String("stage", "stage"),
			logger.Error(err),
		)
		return outcome{status: outcomeFailed, err: err}
	}

	var entries []entry
	switch r.Request.Kind {
	case KindMemes:
		memePath := original
		if p.HasOverlays() {
			memePath = r.composite(staging, name, data, p)
		}
		entries = []entry{
			{name: "images/" + name, path: original},
			{name: "memes/" + name, path: memePath},
			{name: "details/" + name + ".txt", data: Details(p)},
		}
	default:
		entries = []entry{{name: name, path: original}}
	}

	select {
	case payloads <- entries:
		return outcome{status: outcomeOK}
	case <-stop:
		return outcome{status: outcomeFailed, err: errAborted}
	}
}

// composite returns the staged path of the meme image, falling back to the
// original when compositing fails.
func (r *Run) composite(staging, name string, data []byte, p *model.PostRecord) string {
	original := filepath.Join(staging, name)
	postID := p.ID.Hex()

	composed, err := r.exp.compositor.Compose(data, p)
	if err != nil {
		r.log.Warn("Meme composite failed, using original image",
			logger.String("post_id", postID),
			logger.String("stage", "composite"),
			logger.Error(err),
		)
		return original
	}

	path := filepath.Join(staging, "meme_"+name)
	if err := os.WriteFile(path, composed, 0o600); err != nil {
		r.log.Warn("Failed to stage meme, using original image",
			logger.String("post_id", postID),
			logger.String("stage", "stage"),
			logger.Error(err),
		)
		return original
	}
	return path
}

func writeEntry(zw *zip.Writer, en entry) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     en.name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if en.path == "" {
		_, err = fw.Write(en.data)
		return err
	}

	f, err := os.Open(en.path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(fw, f)
	return err
}

// summarize builds the summary in selector order. Every selected post counts
// as processed, including posts without an image; those are only reported
// through skipped.
func summarize(posts []model.PostRecord, outcomes []outcome) (s model.ExportSummary, skipped int) {
	s = model.ExportSummary{
		TotalPosts: len(posts),
		Processed:  len(outcomes),
		Errors:     []model.ExportError{},
	}
	for i, o := range outcomes {
		switch o.status {
		case outcomeSkipped:
			skipped++
		case outcomeOK:
			s.Successful++
		case outcomeFailed:
			s.Failed++
			s.Errors = append(s.Errors, model.ExportError{
				ID:    posts[i].ID.Hex(),
				Error: o.err.Error(),
			})
		}
	}
	return s, skipped
}
