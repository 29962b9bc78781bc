package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidscreen/internal/apperr"
	"vidscreen/internal/models"
)

const videoColumns = `
	id, filename, original_name, file_path, file_size, mime_type, duration,
	owner_id, organization, status, progress, sensitivity_status,
	sensitivity_score, title, description, tags, category, allowed_roles,
	allowed_users, uploaded_at, processed_at
`

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	const query = `
		INSERT INTO videos (
			id, filename, original_name, file_path, file_size, mime_type, duration,
			owner_id, organization, status, progress, sensitivity_status,
			sensitivity_score, title, description, tags, category, allowed_roles,
			allowed_users, uploaded_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.Filename,
		video.OriginalName,
		video.FilePath,
		video.FileSize,
		video.MimeType,
		video.Duration,
		video.OwnerID,
		video.Organization,
		video.Status,
		video.Progress,
		video.SensitivityStatus,
		video.SensitivityScore,
		video.Title,
		video.Description,
		video.Tags,
		video.Category,
		video.AllowedRoles,
		video.AllowedUsers,
		video.UploadedAt,
	)
	return err
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, err
	}
	return video, nil
}

// SetProgress persists a progress update for a record still in processing.
// Updates to records that already reached a terminal state are silently
// dropped, keeping terminal values authoritative over stragglers.
func (r *VideoRepository) SetProgress(ctx context.Context, id string, progress int) error {
	const query = `
		UPDATE videos
		SET progress = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	_, err := r.pool.Exec(ctx, query, id, progress)
	return err
}

// MarkCompleted lands the record in the completed terminal state. Retrying
// the same write is a no-op; transitions out of failed are refused.
func (r *VideoRepository) MarkCompleted(ctx context.Context, id string, status models.SensitivityStatus, score int, at time.Time) error {
	const query = `
		UPDATE videos
		SET status = 'completed',
		    progress = 100,
		    sensitivity_status = $2,
		    sensitivity_score = $3,
		    processed_at = COALESCE(processed_at, $4),
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('processing', 'uploading', 'completed')
	`
	_, err := r.pool.Exec(ctx, query, id, status, score, at)
	return err
}

// MarkFailed lands the record in the failed terminal state with progress
// reset to zero. Idempotent; completed records are left alone.
func (r *VideoRepository) MarkFailed(ctx context.Context, id string) error {
	const query = `
		UPDATE videos
		SET status = 'failed',
		    progress = 0,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('processing', 'uploading', 'failed')
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// FailStale fails every record stuck in a non-terminal state for longer than
// olderThan. A zero olderThan sweeps all non-terminal records, which is the
// startup recovery policy after a crash. Returns the number of records swept.
func (r *VideoRepository) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	const query = `
		UPDATE videos
		SET status = 'failed',
		    progress = 0,
		    updated_at = NOW()
		WHERE status IN ('uploading', 'processing') AND updated_at <= $1
	`
	tag, err := r.pool.Exec(ctx, query, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// VideoFilter narrows List results. Zero-valued fields are not applied;
// tenancy fields are set by the handler from the authenticated identity,
// never from client input.
type VideoFilter struct {
	Status            string
	SensitivityStatus string
	Category          string

	Organization string // restrict to one organization
	OwnerID      string // restrict to records owned by this user
	ViewableBy   string // restrict to records owned by or allow-listed for this user
	Page         int
	Limit        int
}

func (f VideoFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 100 {
		return 10
	}
	return f.Limit
}

func (f VideoFilter) offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.limit()
}

func buildFilter(f VideoFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.SensitivityStatus != "" {
		add("sensitivity_status = $%d", f.SensitivityStatus)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Organization != "" {
		add("organization = $%d", f.Organization)
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.ViewableBy != "" {
		args = append(args, f.ViewableBy)
		conds = append(conds, fmt.Sprintf("(owner_id = $%d OR $%d = ANY(allowed_users))", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *VideoRepository) List(ctx context.Context, f VideoFilter) ([]models.Video, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM videos`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM videos%s ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`,
		videoColumns, where, len(args)+1, len(args)+2,
	)
	rows, err := r.pool.Query(ctx, query, append(args, f.limit(), f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, err
		}
		videos = append(videos, video)
	}
	return videos, total, rows.Err()
}

// MetadataUpdate carries the mutable descriptive fields. Nil pointers leave
// the stored value unchanged.
type MetadataUpdate struct {
	Title       *string
	Description *string
	Tags        []string
	Category    *string
}

func (r *VideoRepository) UpdateMetadata(ctx context.Context, id string, upd MetadataUpdate) error {
	const query = `
		UPDATE videos
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    tags = COALESCE($4, tags),
		    category = COALESCE($5, category),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, upd.Title, upd.Description, upd.Tags, upd.Category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("video not found")
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("video not found")
	}
	return nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID,
		&video.Filename,
		&video.OriginalName,
		&video.FilePath,
		&video.FileSize,
		&video.MimeType,
		&video.Duration,
		&video.OwnerID,
		&video.Organization,
		&video.Status,
		&video.Progress,
		&video.SensitivityStatus,
		&video.SensitivityScore,
		&video.Title,
		&video.Description,
		&video.Tags,
		&video.Category,
		&video.AllowedRoles,
		&video.AllowedUsers,
		&video.UploadedAt,
		&video.ProcessedAt,
	)
	return video, err
}
