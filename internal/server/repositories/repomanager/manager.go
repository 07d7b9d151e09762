package repomanager

import (
	"context"
	"database/sql"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/dbx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/credentials"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/identities"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on the pool and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Credentials(db dbx.DBTX) credentials.Repository
}
