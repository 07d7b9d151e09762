package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/dbx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query :=
		`INSERT INTO identities (username, email, password_hash, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.Username, identity.Email, identity.PasswordHash, string(identity.Status),
	).Scan(&identity.ID, &identity.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

const selectIdentity = `SELECT id, username, email, password_hash, status, created_at, updated_at FROM identities`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.getOne(ctx, selectIdentity+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error) {
	return r.getOne(ctx, selectIdentity+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Identity, error) {
	return r.getOne(ctx, selectIdentity+` WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.getOne(ctx, selectIdentity+` WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Identity, error) {
	identity := &models.Identity{}
	var status string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&status, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	identity.Status = models.IdentityStatus(status)
	return identity, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM identities WHERE username = $1 OR lower(email) = lower($2)
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Activate moves a PENDING identity to ACTIVE. An identity that is already
// ACTIVE is left untouched and reported as not found.
func (r *PostgresRepository) Activate(ctx context.Context, id string) error {
	query :=
		`UPDATE identities SET status = 'ACTIVE', updated_at = now()
		 WHERE id = $1 AND status = 'PENDING'
		 `
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query :=
		`UPDATE identities SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, hash)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
