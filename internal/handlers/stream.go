package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vidscreen/internal/apperr"
	"vidscreen/internal/httprange"
	"vidscreen/internal/storage"
)

// StreamVideo serves the stored file with single-range support so players
// can seek. Access follows the same rule as fetching the record.
func (h HandlerSet) StreamVideo(c *gin.Context) {
	video, ok := h.loadForViewer(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	size, err := h.store.Stat(ctx, video.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			h.respondError(c, apperr.NotFound("video file not found"))
			return
		}
		h.respondError(c, apperr.Storage("Error streaming video", err))
		return
	}

	rng, hasRange, err := httprange.Parse(c.GetHeader("Range"), size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"error": "requested range not satisfiable"})
		return
	}

	reader, err := h.store.Open(ctx, video.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			h.respondError(c, apperr.NotFound("video file not found"))
			return
		}
		h.respondError(c, apperr.Storage("Error streaming video", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Type", video.MimeType)
	c.Header("Accept-Ranges", "bytes")

	if !hasRange {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			h.log.Debug().Err(err).Str("video_id", video.ID).Msg("stream interrupted")
		}
		return
	}

	if _, err := reader.Seek(rng.Start, io.SeekStart); err != nil {
		h.respondError(c, apperr.Storage("Error streaming video", err))
		return
	}

	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	c.Header("Content-Length", strconv.FormatInt(rng.Length(), 10))
	c.Status(http.StatusPartialContent)
	if _, err := io.CopyN(c.Writer, reader, rng.Length()); err != nil {
		h.log.Debug().Err(err).Str("video_id", video.ID).Msg("stream interrupted")
	}
}
