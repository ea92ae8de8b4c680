package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cattube/internal/models"
)

const uniqueViolation = "23505"

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `id, title, assembly_id, uploaded_at, transcoded_url, thumbnail_url, user_id`

func scanVideo(row pgx.Row) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(&v.ID, &v.Title, &v.AssemblyID, &v.UploadedAt, &v.TranscodedURL, &v.ThumbnailURL, &v.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VideoRepo) Create(ctx context.Context, title, assemblyID string, ownerID uuid.UUID) (*models.Video, error) {
	v := &models.Video{
		ID:         uuid.New(),
		Title:      title,
		AssemblyID: assemblyID,
		OwnerID:    ownerID,
	}

	query := `INSERT INTO videos (id, title, assembly_id, user_id)
		VALUES ($1, $2, $3, $4) RETURNING uploaded_at`

	err := r.pool.QueryRow(ctx, query, v.ID, v.Title, v.AssemblyID, v.OwnerID).Scan(&v.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("assembly %s: %w", assemblyID, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return v, nil
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
}

func (r *VideoRepo) GetByAssemblyID(ctx context.Context, assemblyID string) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE assembly_id = $1`, assemblyID))
}

// Update writes the mutable fields; assembly_id is never written.
func (r *VideoRepo) Update(ctx context.Context, v *models.Video) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE videos SET title = $1, transcoded_url = $2, thumbnail_url = $3 WHERE id = $4",
		v.Title, v.TranscodedURL, v.ThumbnailURL, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update video %s: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VideoRepo) List(ctx context.Context) ([]*models.Video, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]*models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepo) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM videos")
	if err != nil {
		return 0, fmt.Errorf("delete videos: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
