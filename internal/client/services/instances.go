package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// StatusSummary is the user-visible view of the ledger and the instances.
type StatusSummary struct {
	Transmissions map[models.TransmissionStatus]int
	Instances     map[models.InstanceStatus]int
}

// InstanceService holds the status operations triggered by the user.
type InstanceService interface {
	// Save stores a new SAVED instance with its responses.
	Save(ctx context.Context, inst *models.SurveyInstance, responses []*models.Response) error
	MarkSubmitRequested(ctx context.Context, uuid string) error
	// Resend queues every file of the instance again and moves it back to
	// SUBMITTED.
	Resend(ctx context.Context, uuid string) error
	// MarkUnsent queues every file of the instance again without touching
	// its status.
	MarkUnsent(ctx context.Context, uuid string) error
	Status(ctx context.Context) (*StatusSummary, error)
	Records(ctx context.Context, surveyGroupID int64) ([]*models.Record, error)
	// PruneRecords drops records of the group that own no instance.
	PruneRecords(ctx context.Context, surveyGroupID int64) (int64, error)
}

type instanceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
}

func NewInstanceService(db *sql.DB, rm repomanager.RepositoryManager, clk clock.Clock) InstanceService {
	if clk == nil {
		clk = clock.System()
	}
	return &instanceService{db: db, repomanager: rm, clock: clk}
}

func (s *instanceService) Save(ctx context.Context, inst *models.SurveyInstance, responses []*models.Response) error {
	if inst.UUID == "" {
		inst.UUID = uuid.NewString()
	}
	now := s.clock.Now()
	if inst.StartDate.IsZero() {
		inst.StartDate = now
	}
	inst.SavedDate = now
	inst.Status = models.StatusSaved

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Instances(tx)
		if err := repo.Create(ctx, inst); err != nil {
			return err
		}
		for _, r := range responses {
			r.InstanceID = inst.ID
			if err := repo.SaveResponse(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *instanceService) MarkSubmitRequested(ctx context.Context, uuid string) error {
	repo := s.repomanager.Instances(s.db)

	inst, err := repo.GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if inst.Status != models.StatusSaved {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, uuid, inst.Status)
	}

	_, err = repo.Advance(ctx, inst.ID, models.StatusSubmitRequested, s.clock.Now())
	return err
}

func (s *instanceService) Resend(ctx context.Context, uuid string) error {
	inst, err := s.repomanager.Instances(s.db).GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if inst.Status < models.StatusSubmitted || inst.Status == models.StatusDownloaded {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, uuid, inst.Status)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Transmissions(tx).Requeue(ctx, inst.ID); err != nil {
			return err
		}
		return s.repomanager.Instances(tx).Rewind(ctx, inst.ID, models.StatusSubmitted)
	})
}

func (s *instanceService) MarkUnsent(ctx context.Context, uuid string) error {
	inst, err := s.repomanager.Instances(s.db).GetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	_, err = s.repomanager.Transmissions(s.db).Requeue(ctx, inst.ID)
	return err
}

func (s *instanceService) Status(ctx context.Context) (*StatusSummary, error) {
	tr, err := s.repomanager.Transmissions(s.db).CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{Transmissions: tr, Instances: make(map[models.InstanceStatus]int)}
	repo := s.repomanager.Instances(s.db)
	for st := models.StatusSaved; st <= models.StatusDownloaded; st++ {
		list, err := repo.ListByStatus(ctx, st)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			summary.Instances[st] = len(list)
		}
	}
	return summary, nil
}

func (s *instanceService) Records(ctx context.Context, surveyGroupID int64) ([]*models.Record, error) {
	return s.repomanager.Records(s.db).ListByGroup(ctx, surveyGroupID)
}

func (s *instanceService) PruneRecords(ctx context.Context, surveyGroupID int64) (int64, error) {
	return s.repomanager.Records(s.db).DeleteEmpty(ctx, surveyGroupID)
}
