// Package credentials persists ephemeral credentials (signup OTPs and
// password reset tokens) in PostgreSQL.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/dbx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, c *models.EphemeralCredential) error {
	query :=
		`INSERT INTO ephemeral_credentials (kind, identity_id, value, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, identity_id)
		 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, created_at = now()
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		string(c.Kind), c.IdentityID, c.Value, c.ExpiresAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Replace(ctx context.Context, kind models.CredentialKind, identityID, value string, expiresAt time.Time) error {
	query :=
		`UPDATE ephemeral_credentials SET value = $3, expires_at = $4, created_at = now()
		 WHERE kind = $1 AND identity_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, string(kind), identityID, value, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

const selectCredential = `SELECT id, kind, identity_id, value, expires_at, created_at FROM ephemeral_credentials`

func (r *PostgresRepository) FindForUpdate(ctx context.Context, kind models.CredentialKind, identityID string) (*models.EphemeralCredential, error) {
	return r.getOne(ctx, selectCredential+` WHERE kind = $1 AND identity_id = $2 FOR UPDATE`, string(kind), identityID)
}

func (r *PostgresRepository) FindByValueForUpdate(ctx context.Context, kind models.CredentialKind, value string) (*models.EphemeralCredential, error) {
	return r.getOne(ctx, selectCredential+` WHERE kind = $1 AND value = $2 FOR UPDATE`, string(kind), value)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.EphemeralCredential, error) {
	c := &models.EphemeralCredential{}
	var kind string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &kind, &c.IdentityID, &c.Value, &c.ExpiresAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	c.Kind = models.CredentialKind(kind)
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM ephemeral_credentials WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteExpiredBefore removes every credential of kind whose expiry is
// strictly before now and returns how many rows went away.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, kind models.CredentialKind, now time.Time) (int64, error) {
	query := `DELETE FROM ephemeral_credentials WHERE kind = $1 AND expires_at < $2`

	res, err := r.db.ExecContext(ctx, query, string(kind), now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
