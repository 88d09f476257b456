package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// PushReport counts the outcome of one push pass.
type PushReport struct {
	Synced  int
	Deduped int
	Failed  int
	Skipped int
}

// PullReport describes one pull of a survey group.
type PullReport struct {
	SurveyGroupID int64
	Batches       int
	Fetched       int
	Merged        int
	Cursor        int64
	Err           error
}

// Report is the outcome of a full sync pass.
type Report struct {
	Repaired int
	Exported int
	Push     *PushReport
	Pulls    []*PullReport
}

type SyncService interface {
	// Recover fails every attempt left IN_PROGRESS by a previous process.
	Recover(ctx context.Context) (int64, error)
	Push(ctx context.Context) (*PushReport, error)
	Pull(ctx context.Context, surveyGroupID int64) (*PullReport, error)
	// SyncAll exports pending instances, then runs push and the pulls of
	// every configured survey group concurrently. A signing failure in one
	// flow cancels the other.
	SyncAll(ctx context.Context) (*Report, error)
}

type syncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metadata    gateway.Gateway
	objects     objectstore.Gateway
	exporter    ExportService
	files       *filex.Store
	groups      []int64
	publicMedia bool
	clock       clock.Clock
	log         logging.Logger
}

// SyncDeps groups the collaborators of a SyncService.
type SyncDeps struct {
	DB           *sql.DB
	Repositories repomanager.RepositoryManager
	Metadata     gateway.Gateway
	Objects      objectstore.Gateway
	Exporter     ExportService
	Files        *filex.Store
	SurveyGroups []int64
	PublicMedia  bool
	Clock        clock.Clock
	Logger       logging.Logger
}

func NewSyncService(d SyncDeps) SyncService {
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	return &syncService{
		db:          d.DB,
		repomanager: d.Repositories,
		metadata:    d.Metadata,
		objects:     d.Objects,
		exporter:    d.Exporter,
		files:       d.Files,
		groups:      d.SurveyGroups,
		publicMedia: d.PublicMedia,
		clock:       d.Clock,
		log:         d.Logger.With("component", "sync"),
	}
}

func (s *syncService) Recover(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Transmissions(s.db).Reconcile(ctx)
	if err != nil {
		return 0, fmt.Errorf("error reconciling ledger: %w", err)
	}
	if n > 0 {
		s.log.Warn(ctx, "interrupted transmissions marked failed", "count", n)
	}
	return n, nil
}

func (s *syncService) SyncAll(ctx context.Context) (*Report, error) {
	report := &Report{}

	if s.exporter != nil {
		n, err := s.exporter.CheckSubmittedFiles(ctx)
		if err != nil {
			return report, err
		}
		report.Repaired = n

		if report.Exported, err = s.exporter.ExportPending(ctx); err != nil {
			return report, err
		}
	}

	// a fatal error in either flow cancels the other; the rest are collected
	var pushErr, pullErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		report.Push, err = s.Push(gctx)
		if fatal(err) {
			return err
		}
		pushErr = err
		return nil
	})
	g.Go(func() error {
		var err error
		report.Pulls, err = s.pullAll(gctx)
		if fatal(err) {
			return err
		}
		pullErr = err
		return nil
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	if err := errors.Join(pushErr, pullErr); err != nil {
		return report, err
	}
	if report.Push != nil && report.Push.Failed > 0 {
		return report, fmt.Errorf("%w: %d transmissions failed", ErrIncomplete, report.Push.Failed)
	}
	return report, nil
}

func (s *syncService) pullAll(ctx context.Context) ([]*PullReport, error) {
	var (
		reports []*PullReport
		errs    []error
	)
	for _, group := range s.groups {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := s.Pull(ctx, group)
		reports = append(reports, rep)
		if err != nil {
			rep.Err = err
			errs = append(errs, fmt.Errorf("survey group %d: %w", group, err))
		}
	}
	if len(errs) > 0 {
		return reports, fmt.Errorf("%w: %w", ErrIncomplete, errors.Join(errs...))
	}
	return reports, nil
}

// localPath resolves the file of a transmission in the file store.
func (s *syncService) localPath(t *models.Transmission) string {
	if strings.HasPrefix(t.ObjectKey, objectstore.DirArchives+"/") {
		return s.files.ArchivePath(t.Filename)
	}
	return s.files.MediaPath(t.Filename)
}

func objectKeyFor(filename string) string {
	name := path.Base(filename)
	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		return objectstore.ArchiveKey(name)
	}
	return objectstore.MediaKey(name)
}

func notFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }
