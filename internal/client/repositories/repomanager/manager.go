// Package repomanager hands out repositories bound to either the database
// or an open transaction, so services can compose several repositories in
// one dbx.WithTx call.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/cursors"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/forms"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/instances"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/transmissions"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Instances(db dbx.DBTX) instances.Repository
	Transmissions(db dbx.DBTX) transmissions.Repository
	Records(db dbx.DBTX) records.Repository
	Cursors(db dbx.DBTX) cursors.Repository
	Forms(db dbx.DBTX) forms.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}
