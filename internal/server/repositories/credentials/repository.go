package credentials

import (
	"context"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
)

type Repository interface {
	// Upsert stores the credential, superseding any live one of the same
	// kind for the same identity.
	Upsert(ctx context.Context, c *models.EphemeralCredential) error
	// Replace rewrites value and expiry of an existing row in place.
	Replace(ctx context.Context, kind models.CredentialKind, identityID, value string, expiresAt time.Time) error
	FindForUpdate(ctx context.Context, kind models.CredentialKind, identityID string) (*models.EphemeralCredential, error)
	FindByValueForUpdate(ctx context.Context, kind models.CredentialKind, value string) (*models.EphemeralCredential, error)
	Delete(ctx context.Context, id string) error
	DeleteExpiredBefore(ctx context.Context, kind models.CredentialKind, now time.Time) (int64, error)
}
