package identities

import (
	"context"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error)
	GetByUsername(ctx context.Context, username string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Activate(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
