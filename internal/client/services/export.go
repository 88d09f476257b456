package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/dmitrijs2005/fieldsync/internal/archive"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// ExportService turns submitted instances into archives and ledger work.
type ExportService interface {
	// ExportPending archives every SUBMIT_REQUESTED instance. An instance
	// whose archive cannot be built keeps its status and is retried on the
	// next call.
	ExportPending(ctx context.Context) (int, error)
	// CheckSubmittedFiles sends SUBMITTED instances whose archive vanished
	// before delivery back to SUBMIT_REQUESTED.
	CheckSubmittedFiles(ctx context.Context) (int, error)
}

type exportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	builder     *archive.Builder
	files       *filex.Store
	publicMedia bool
	clock       clock.Clock
	log         logging.Logger
}

func NewExportService(db *sql.DB, rm repomanager.RepositoryManager, builder *archive.Builder, files *filex.Store,
	publicMedia bool, clk clock.Clock, log logging.Logger) ExportService {
	return &exportService{
		db:          db,
		repomanager: rm,
		builder:     builder,
		files:       files,
		publicMedia: publicMedia,
		clock:       clk,
		log:         log.With("component", "export"),
	}
}

func (s *exportService) ExportPending(ctx context.Context) (int, error) {
	list, err := s.repomanager.Instances(s.db).ListByStatus(ctx, models.StatusSubmitRequested)
	if err != nil {
		return 0, fmt.Errorf("error listing instances: %w", err)
	}

	exported := 0
	for _, inst := range list {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := s.export(ctx, inst); err != nil {
			s.log.Warn(ctx, "export failed", "uuid", inst.UUID, "error", err)
			continue
		}
		exported++
	}

	if exported > 0 {
		s.log.Info(ctx, "instances exported", "count", exported)
	}
	return exported, nil
}

func (s *exportService) export(ctx context.Context, inst *models.SurveyInstance) error {
	responses, err := s.repomanager.Instances(s.db).ListResponses(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("error listing responses: %w", err)
	}

	res, err := s.builder.Build(inst, responses)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		trRepo := s.repomanager.Transmissions(tx)

		err := trRepo.Create(ctx, &models.Transmission{
			InstanceID: inst.ID,
			FormID:     inst.FormID,
			Filename:   res.Filename(),
			ObjectKey:  objectstore.ArchiveKey(res.Filename()),
		})
		if err != nil {
			return err
		}

		for _, r := range responses {
			if !r.IsMedia() || r.Answer == "" {
				continue
			}
			ref := s.files.MediaRef(r.Answer)
			err := trRepo.Create(ctx, &models.Transmission{
				InstanceID: inst.ID,
				FormID:     inst.FormID,
				Filename:   ref,
				ObjectKey:  objectstore.MediaKey(path.Base(ref)),
				Public:     s.publicMedia,
			})
			if err != nil {
				return err
			}
		}

		_, err = s.repomanager.Instances(tx).Advance(ctx, inst.ID, models.StatusSubmitted, now)
		return err
	})
}

func (s *exportService) CheckSubmittedFiles(ctx context.Context) (int, error) {
	instRepo := s.repomanager.Instances(s.db)
	trRepo := s.repomanager.Transmissions(s.db)

	list, err := instRepo.ListByStatus(ctx, models.StatusSubmitted)
	if err != nil {
		return 0, fmt.Errorf("error listing instances: %w", err)
	}

	repaired := 0
	for _, inst := range list {
		p := s.builder.Path(inst)
		if filex.Exists(p) {
			continue
		}

		t, err := trRepo.GetByFilename(ctx, filepath.Base(p))
		switch {
		case err == nil && t.Status == models.TransmissionSynced:
			continue
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return repaired, err
		}

		if err := instRepo.Rewind(ctx, inst.ID, models.StatusSubmitRequested); err != nil {
			return repaired, err
		}
		s.log.Warn(ctx, "archive missing, instance queued for export", "uuid", inst.UUID)
		repaired++
	}
	return repaired, nil
}
