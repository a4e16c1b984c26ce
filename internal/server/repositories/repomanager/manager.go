// Package repomanager vends repository implementations bound to a DBTX, so
// services can run several repositories inside one transaction, and exposes
// the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/documo/documo/internal/dbx"
	"github.com/documo/documo/internal/server/repositories/doctypes"
	"github.com/documo/documo/internal/server/repositories/documents"
	"github.com/documo/documo/internal/server/repositories/folders"
	"github.com/documo/documo/internal/server/repositories/outbox"
	"github.com/documo/documo/internal/server/repositories/requests"
	"github.com/documo/documo/internal/server/repositories/sharelinks"
)

// RepositoryManager builds repositories over the given DBTX (*sql.DB or *sql.Tx).
type RepositoryManager interface {
	Documents(db dbx.DBTX) documents.Repository
	Requests(db dbx.DBTX) requests.Repository
	Folders(db dbx.DBTX) folders.Repository
	DocumentTypes(db dbx.DBTX) doctypes.Repository
	ShareLinks(db dbx.DBTX) sharelinks.Repository
	Outbox(db dbx.DBTX) outbox.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
