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
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

type SQLiteRepositoryManager struct{}

var _ RepositoryManager = (*SQLiteRepositoryManager)(nil)

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return store.RunMigrations(ctx, db)
}

func (m *SQLiteRepositoryManager) Instances(db dbx.DBTX) instances.Repository {
	return instances.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Transmissions(db dbx.DBTX) transmissions.Repository {
	return transmissions.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Cursors(db dbx.DBTX) cursors.Repository {
	return cursors.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Forms(db dbx.DBTX) forms.Repository {
	return forms.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
