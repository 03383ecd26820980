package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/export"
	"admin-service/logger"
	"admin-service/model"

	"github.com/gin-gonic/gin"
)

type Exporter interface {
	Prepare(ctx context.Context, req export.Request) (*export.Run, error)
}

// ExportHandler streams post and meme archives.
type ExportHandler struct {
	exporter Exporter
	pub      events.Publisher
	log      logger.Logger
}

func NewExportHandler(exporter Exporter, pub events.Publisher, log logger.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, pub: pub, log: log}
}

// missingDates is the 400 message per export kind when a date is absent.
var missingDates = map[export.Kind]string{
	export.KindPosts: "Start date and end date are required",
	export.KindMemes: "Please provide fromDate and toDate parameters",
}

// Posts handles GET /export/posts?startDate&endDate
func (h *ExportHandler) Posts(c *gin.Context) {
	h.serve(c, export.KindPosts, c.Query("startDate"), c.Query("endDate"))
}

// Memes handles GET /export/memes?fromDate&toDate
func (h *ExportHandler) Memes(c *gin.Context) {
	h.serve(c, export.KindMemes, c.Query("fromDate"), c.Query("toDate"))
}

func (h *ExportHandler) serve(c *gin.Context, kind export.Kind, startRaw, endRaw string) {
	if strings.TrimSpace(startRaw) == "" || strings.TrimSpace(endRaw) == "" {
		badRequest(c, missingDates[kind])
		return
	}
	rng, err := export.ParseRange(startRaw, endRaw)
	if err != nil {
		respondError(c, err)
		return
	}
	req := export.Request{Kind: kind, Range: rng}
	if v := c.Query("flagged"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "Invalid flagged value. Must be 'true' or 'false'")
			return
		}
		req.Flagged = &flagged
	}

	ctx := c.Request.Context()
	run, err := h.exporter.Prepare(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "application/zip")
	header.Set("Content-Disposition", "attachment; filename="+run.Filename())
	header.Set("Access-Control-Expose-Headers", "Content-Disposition")
	c.Status(http.StatusOK)

	started := time.Now()
	summary, err := run.Stream(ctx, c.Writer)
	if err != nil {
		h.log.Error("Export failed",
			logger.String("run_id", run.ID),
			logger.String("kind", string(kind)),
			logger.Error(err),
		)
		h.abort(c, err)
		return
	}

	events.Emit(ctx, h.pub, h.log, events.SubjectExportDone, model.ExportCompleted{
		RunID:      run.ID,
		Kind:       string(kind),
		Start:      rng.StartRaw,
		End:        rng.EndRaw,
		Summary:    summary,
		Duration:   time.Since(started).Seconds(),
		FinishedAt: time.Now().UTC(),
	})
}

// abort reports an archive failure. Once part of the archive has been sent
// the status line is gone, so the connection is closed instead.
func (h *ExportHandler) abort(c *gin.Context, err error) {
	if !c.Writer.Written() {
		header := c.Writer.Header()
		header.Del("Content-Type")
		header.Del("Content-Disposition")
		header.Del("Access-Control-Expose-Headers")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("Failed to create archive: %s", apperr.Message(err)),
		})
		return
	}
	conn, _, herr := c.Writer.Hijack()
	if herr != nil {
		h.log.Warn("Cannot close export connection", logger.Error(herr))
		c.Abort()
		return
	}
	_ = conn.Close()
	c.Abort()
}
