package handlers

import (
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vidscreen/internal/apperr"
	"vidscreen/internal/ids"
	"vidscreen/internal/media/probe"
	"vidscreen/internal/middleware"
	"vidscreen/internal/models"
	"vidscreen/internal/progress"
	"vidscreen/internal/repository"
	"vidscreen/internal/security"
)

type uploadedVideo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (h HandlerSet) UploadVideo(c *gin.Context) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		h.respondError(c, apperr.Validation("No video file provided"))
		return
	}
	defer file.Close()

	if h.cfg.Upload.MaxSizeBytes > 0 && header.Size > h.cfg.Upload.MaxSizeBytes {
		h.respondError(c, apperr.Validation("File size exceeds maximum limit"))
		return
	}

	ctx := c.Request.Context()

	tmpPath, err := spoolToTemp(file)
	if err != nil {
		h.respondError(c, apperr.Storage("Error uploading video", err))
		return
	}
	defer os.Remove(tmpPath)

	// Best-effort duration probe; a probe failure never blocks ingestion.
	duration, err := probe.Duration(ctx, tmpPath)
	if err != nil {
		h.log.Warn().Err(err).Str("file", header.Filename).Msg("duration probe failed")
		duration = 0
	}

	videoID := ids.New()
	key := buildObjectKey(videoID, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	spool, err := os.Open(tmpPath)
	if err != nil {
		h.respondError(c, apperr.Storage("Error uploading video", err))
		return
	}
	defer spool.Close()

	if err := h.store.Save(ctx, key, spool, header.Size, contentType); err != nil {
		h.respondError(c, apperr.Storage("Error uploading video", err))
		return
	}

	video := models.Video{
		ID:                videoID,
		Filename:          path.Base(key),
		OriginalName:      header.Filename,
		FilePath:          key,
		FileSize:          header.Size,
		MimeType:          contentType,
		Duration:          duration,
		OwnerID:           user.UserID,
		Organization:      user.Organization,
		Status:            models.VideoStatusProcessing,
		SensitivityStatus: models.SensitivityPending,
		Title:             defaultString(c.PostForm("title"), header.Filename),
		Description:       c.PostForm("description"),
		Tags:              splitTags(c.PostForm("tags")),
		Category:          defaultString(c.PostForm("category"), "General"),
		AllowedRoles:      []string{"viewer", "editor", "admin"},
		AllowedUsers:      []string{},
		UploadedAt:        time.Now().UTC(),
	}

	if err := h.videos.Create(ctx, video); err != nil {
		// The blob is already written; don't leave it orphaned.
		if cleanupErr := h.store.Delete(context.Background(), key); cleanupErr != nil {
			h.log.Error().Err(cleanupErr).Str("key", key).Msg("cleanup after failed ingest")
		}
		h.respondError(c, apperr.Storage("Error uploading video", err))
		return
	}

	h.bus.Publish(user.UserID, progress.EventUploaded, progress.UploadedPayload{
		VideoID:  video.ID,
		Filename: video.OriginalName,
	})

	// Fire-and-forget: the response does not wait for analysis.
	h.launcher.Launch(video.ID, user.UserID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Video uploaded successfully",
		"video": uploadedVideo{
			ID:         video.ID,
			Filename:   video.OriginalName,
			Status:     string(video.Status),
			UploadedAt: video.UploadedAt,
		},
	})
}

func (h HandlerSet) ListVideos(c *gin.Context) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	limit := 10
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	filter := repository.VideoFilter{
		Status:            c.Query("status"),
		SensitivityStatus: c.Query("sensitivityStatus"),
		Category:          c.Query("category"),
		Page:              page,
		Limit:             limit,
	}

	// Tenancy scope comes from the authenticated identity, never the client.
	if !user.IsAdmin() {
		filter.Organization = user.Organization
		if user.Role == models.RoleViewer {
			filter.ViewableBy = user.UserID
		} else {
			filter.OwnerID = user.UserID
		}
	}

	videos, total, err := h.videos.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": videos,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

func (h HandlerSet) GetVideo(c *gin.Context) {
	video, ok := h.loadForViewer(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"video": video})
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Category    string `json:"category"`
}

func (h HandlerSet) UpdateVideo(c *gin.Context) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	video, err := h.videos.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !security.CanEdit(user, video) {
		h.respondError(c, apperr.AccessDenied("Access denied"))
		return
	}

	var req updateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	// Fields left empty stay unchanged; an empty string cannot clear a field.
	var upd repository.MetadataUpdate
	if req.Title != "" {
		upd.Title = &req.Title
	}
	if req.Description != "" {
		upd.Description = &req.Description
	}
	if req.Tags != "" {
		upd.Tags = splitTags(req.Tags)
	}
	if req.Category != "" {
		upd.Category = &req.Category
	}

	if err := h.videos.UpdateMetadata(c.Request.Context(), video.ID, upd); err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.videos.GetByID(c.Request.Context(), video.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Video updated successfully",
		"video":   updated,
	})
}

func (h HandlerSet) DeleteVideo(c *gin.Context) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	video, err := h.videos.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !security.CanDelete(user, video) {
		h.respondError(c, apperr.AccessDenied("Access denied"))
		return
	}

	// The blob goes first; a record without a blob is recoverable, the
	// reverse leaks the file. Delete tolerates an already-missing object.
	if err := h.store.Delete(c.Request.Context(), video.FilePath); err != nil {
		h.respondError(c, apperr.Storage("Error deleting video", err))
		return
	}

	if err := h.videos.Delete(c.Request.Context(), video.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

// loadForViewer fetches the record and enforces the read-access rule shared
// by fetch and stream.
func (h HandlerSet) loadForViewer(c *gin.Context) (models.Video, bool) {
	user, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Video{}, false
	}

	video, err := h.videos.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return models.Video{}, false
	}

	if !security.CanView(user, video) {
		h.respondError(c, apperr.AccessDenied("Access denied"))
		return models.Video{}, false
	}

	return video, true
}

func spoolToTemp(file multipart.File) (string, error) {
	tmp, err := os.CreateTemp("", "vidscreen-upload-*")
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close spool file: %w", err)
	}
	return tmp.Name(), nil
}

func buildObjectKey(videoID, originalName string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	ext := strings.ToLower(path.Ext(originalName))
	return path.Join(datePrefix, videoID+ext)
}

func splitTags(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
