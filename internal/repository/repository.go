package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"cattube/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// VideoStore persists video records. AssemblyID is unique and is never
// changed by Update.
type VideoStore interface {
	Create(ctx context.Context, title, assemblyID string, ownerID uuid.UUID) (*models.Video, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	GetByAssemblyID(ctx context.Context, assemblyID string) (*models.Video, error)
	Update(ctx context.Context, v *models.Video) error
	// List returns every video, newest first.
	List(ctx context.Context) ([]*models.Video, error)
	DeleteAll(ctx context.Context) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
