package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscreen/internal/config"
	"vidscreen/internal/handlers"
	"vidscreen/internal/models"
	"vidscreen/internal/progress"
	"vidscreen/internal/realtime"
	"vidscreen/internal/storage"
)

type fakeLauncher struct {
	videoIDs []string
	ownerIDs []string
}

func (l *fakeLauncher) Launch(videoID, ownerID string) {
	l.videoIDs = append(l.videoIDs, videoID)
	l.ownerIDs = append(l.ownerIDs, ownerID)
}

type uploadFixture struct {
	router   *gin.Engine
	videos   *fakeVideoStore
	launcher *fakeLauncher
	bus      *progress.Bus
	blobDir  string
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blobDir := t.TempDir()
	store, err := storage.NewDiskStore(blobDir)
	require.NoError(t, err)

	videos := &fakeVideoStore{}
	launcher := &fakeLauncher{}
	bus := progress.NewBus()

	cfg := &config.AppConfig{
		Environment: "test",
		Security:    config.SecurityConfig{JWTSecret: testSecret},
	}

	logger := zerolog.Nop()
	h := handlers.NewHandlerSet(logger, cfg, nil, nil, store, videos, launcher, bus, realtime.NewHandler(bus, cfg, logger))

	router := gin.New()
	h.Register(router.Group("/api"))

	return &uploadFixture{
		router:   router,
		videos:   videos,
		launcher: launcher,
		bus:      bus,
		blobDir:  blobDir,
	}
}

func multipartUpload(t *testing.T, fileField string, body []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "clip.mp4")
		require.NoError(t, err)
		_, err = part.Write(body)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func doUpload(f *uploadFixture, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func countBlobs(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestUploadVideoMissingFile(t *testing.T) {
	f := newUploadFixture(t)
	token := signToken(t, "user-1", "editor", "acme")

	body, contentType := multipartUpload(t, "", nil, map[string]string{"title": "demo"})
	rec := doUpload(f, token, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No video file provided")
	assert.Empty(t, f.videos.created)
	assert.Empty(t, f.launcher.videoIDs)
}

func TestUploadVideoCreatesProcessingRecord(t *testing.T) {
	f := newUploadFixture(t)
	token := signToken(t, "user-1", "editor", "acme")

	sub := f.bus.Subscribe("user-1")
	defer f.bus.Unsubscribe(sub)

	payload := bytes.Repeat([]byte{0xAB}, 2048)
	body, contentType := multipartUpload(t, "video", payload, map[string]string{
		"title": "demo",
		"tags":  "sports, news",
	})
	rec := doUpload(f, token, body, contentType)

	require.Equal(t, http.StatusCreated, rec.Code)

	// The record exists in processing before the response returns.
	require.Len(t, f.videos.created, 1)
	created := f.videos.created[0]
	assert.Equal(t, models.VideoStatusProcessing, created.Status)
	assert.Equal(t, 0, created.Progress)
	assert.Equal(t, models.SensitivityPending, created.SensitivityStatus)
	assert.Equal(t, "user-1", created.OwnerID)
	assert.Equal(t, "acme", created.Organization)
	assert.Equal(t, "demo", created.Title)
	assert.Equal(t, []string{"sports", "news"}, created.Tags)
	assert.Equal(t, int64(len(payload)), created.FileSize)

	var resp struct {
		Video struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"video"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.Video.ID)
	assert.Equal(t, "processing", resp.Video.Status)

	// The job was launched for the new record, fire-and-forget.
	require.Len(t, f.launcher.videoIDs, 1)
	assert.Equal(t, created.ID, f.launcher.videoIDs[0])
	assert.Equal(t, "user-1", f.launcher.ownerIDs[0])

	// The blob landed in storage under the record's key.
	assert.Equal(t, 1, countBlobs(t, f.blobDir))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, progress.EventUploaded, ev.Name)
	case <-time.After(time.Second):
		t.Fatal("expected an uploaded event on the owner topic")
	}
}

func TestUploadVideoCleansUpBlobWhenPersistFails(t *testing.T) {
	f := newUploadFixture(t)
	f.videos.createErr = errors.New("insert failed")
	token := signToken(t, "user-1", "editor", "acme")

	body, contentType := multipartUpload(t, "video", []byte("not much of a video"), nil)
	rec := doUpload(f, token, body, contentType)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The partially ingested blob must not be left behind.
	assert.Equal(t, 0, countBlobs(t, f.blobDir))
	assert.Empty(t, f.launcher.videoIDs)
}

func TestUploadVideoForbiddenForViewers(t *testing.T) {
	f := newUploadFixture(t)
	token := signToken(t, "user-2", "viewer", "acme")

	body, contentType := multipartUpload(t, "video", []byte("x"), nil)
	rec := doUpload(f, token, body, contentType)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.videos.created)
}
