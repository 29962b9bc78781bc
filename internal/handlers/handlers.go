package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vidscreen/internal/apperr"
	"vidscreen/internal/config"
	"vidscreen/internal/middleware"
	"vidscreen/internal/models"
	"vidscreen/internal/realtime"
	"vidscreen/internal/repository"
	"vidscreen/internal/storage"
)

// VideoStore is the record-store surface the handlers consume. Implemented
// by repository.VideoRepository.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	GetByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, f repository.VideoFilter) ([]models.Video, int, error)
	UpdateMetadata(ctx context.Context, id string, upd repository.MetadataUpdate) error
	Delete(ctx context.Context, id string) error
}

// JobLauncher starts the analysis job for a freshly ingested record without
// the request waiting on it.
type JobLauncher interface {
	Launch(videoID, ownerID string)
}

type Publisher interface {
	Publish(topic string, name string, payload any)
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	db       *pgxpool.Pool
	cache    *redis.Client
	store    storage.Store
	videos   VideoStore
	launcher JobLauncher
	bus      Publisher
	realtime *realtime.Handler
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	db *pgxpool.Pool,
	cache *redis.Client,
	store storage.Store,
	videos VideoStore,
	launcher JobLauncher,
	bus Publisher,
	rt *realtime.Handler,
) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		db:       db,
		cache:    cache,
		store:    store,
		videos:   videos,
		launcher: launcher,
		bus:      bus,
		realtime: rt,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	videos := v1.Group("/videos")
	// The websocket channel authenticates at handshake time, inside Serve.
	videos.GET("/ws", h.realtime.Serve)

	authed := videos.Group("")
	authed.Use(middleware.Auth(h.cfg), h.requireStore())
	{
		authed.POST("/upload",
			middleware.RequireRoles(models.RoleEditor, models.RoleAdmin),
			h.UploadVideo,
		)
		authed.GET("", h.ListVideos)
		authed.GET("/:id", h.GetVideo)
		authed.GET("/:id/stream", h.StreamVideo)
		authed.PUT("/:id",
			middleware.RequireRoles(models.RoleEditor, models.RoleAdmin),
			h.UpdateVideo,
		)
		authed.DELETE("/:id",
			middleware.RequireRoles(models.RoleEditor, models.RoleAdmin),
			h.DeleteVideo,
		)
	}
}

// requireStore degrades store-backed routes to 503 when the service started
// without a reachable database.
func (h HandlerSet) requireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.videos == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
			return
		}
		c.Next()
	}
}

// respondError translates an error kind into a status code and a single-line
// message at the HTTP boundary.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindAccessDenied:
		status = http.StatusForbidden
	case apperr.KindStorage:
		status = http.StatusInternalServerError
	}

	if errors.As(err, &appErr) {
		msg = appErr.Message()
	}
	if status >= 500 {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": msg})
}
