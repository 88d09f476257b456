package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/transmissions"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
)

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeDeduped
	outcomeFailed
	outcomeSkipped
)

// Push delivers every pending ledger record, one at a time. Cancellation is
// checked between records; an attempt in flight is never abandoned halfway
// in the ledger. A signing failure fails the current record and ends the
// pass with the error.
func (s *syncService) Push(ctx context.Context) (*PushReport, error) {
	report := &PushReport{}

	if err := s.reconcilePending(ctx); err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.log.Warn(ctx, "pending files check failed", "error", err)
	}

	deleted, err := s.repomanager.Forms(s.db).Deleted(ctx)
	if err != nil {
		return report, err
	}

	work, err := s.repomanager.Transmissions(s.db).PendingWork(ctx)
	if err != nil {
		return report, fmt.Errorf("error reading pending work: %w", err)
	}

	for _, t := range work {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, gone := deleted[t.FormID]; gone {
			report.Skipped++
			continue
		}

		o, err := s.transmit(ctx, t)
		switch o {
		case outcomeSynced:
			report.Synced++
		case outcomeDeduped:
			report.Deduped++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			report.Skipped++
		}
		if err != nil {
			s.log.Error(ctx, "push aborted", "filename", t.Filename, "error", err)
			return report, fmt.Errorf("push aborted: %w", err)
		}
	}

	if len(work) > 0 {
		s.log.Info(ctx, "push finished",
			"synced", report.Synced, "deduped", report.Deduped, "failed", report.Failed, "skipped", report.Skipped)
	}
	return report, nil
}

// transmit runs one attempt. The returned error is set only for failures
// that must stop the pass.
func (s *syncService) transmit(ctx context.Context, t *models.Transmission) (outcome, error) {
	trRepo := s.repomanager.Transmissions(s.db)
	log := s.log.With("filename", t.Filename, "key", t.ObjectKey)

	if err := trRepo.Begin(ctx, t.ID, s.clock.Now()); err != nil {
		if !errors.Is(err, transmissions.ErrNotClaimable) {
			log.Error(ctx, "failed to claim transmission", "error", err)
		}
		return outcomeSkipped, nil
	}

	// ledger writes after Begin must land even when the pass is canceled
	done := context.WithoutCancel(ctx)

	fail := func(stage string, err error) (outcome, error) {
		log.Warn(ctx, "transmission failed", "stage", stage, "error", err)
		if ferr := trRepo.Fail(done, t.ID, s.clock.Now()); ferr != nil {
			log.Error(ctx, "failed to record failure", "error", ferr)
		}
		if fatal(err) {
			return outcomeFailed, err
		}
		return outcomeFailed, nil
	}

	obj, err := objectstore.Describe(s.localPath(t), t.ObjectKey, t.Public)
	if err != nil {
		return fail("describe", err)
	}

	dup, err := trRepo.FindSynced(ctx, obj.Key, obj.MD5, t.ID)
	switch {
	case err == nil && dup != nil:
		if err := trRepo.Complete(done, t.ID, obj.MD5, s.clock.Now()); err != nil {
			return fail("complete", err)
		}
		log.Debug(ctx, "identical object already delivered", "by", dup.Filename)
		s.cascade(done, t.InstanceID)
		return outcomeDeduped, nil
	case err != nil && !notFound(err):
		return fail("dedupe", err)
	}

	if _, err := s.objects.Put(ctx, obj); err != nil {
		return fail("put", err)
	}

	action := gateway.ActionImage
	if strings.HasPrefix(t.ObjectKey, objectstore.DirArchives+"/") {
		action = gateway.ActionSubmit
	}
	if err := s.metadata.NotifyFileAvailable(ctx, action, t.FormID, path.Base(t.Filename)); err != nil {
		return fail("notify", err)
	}

	if err := trRepo.Complete(done, t.ID, obj.MD5, s.clock.Now()); err != nil {
		return fail("complete", err)
	}
	s.cascade(done, t.InstanceID)
	return outcomeSynced, nil
}

// cascade advances the owning instance once its archive, or all of its
// files, reached SYNCED.
func (s *syncService) cascade(ctx context.Context, instanceID int64) {
	if instanceID == models.UnknownInstanceID {
		return
	}

	list, err := s.repomanager.Transmissions(s.db).ListByInstance(ctx, instanceID)
	if err != nil {
		s.log.Error(ctx, "failed to list instance transmissions", "instance", instanceID, "error", err)
		return
	}

	allSynced, archiveSynced := len(list) > 0, false
	for _, t := range list {
		if t.Status != models.TransmissionSynced {
			allSynced = false
			continue
		}
		if strings.HasPrefix(t.ObjectKey, objectstore.DirArchives+"/") {
			archiveSynced = true
		}
	}

	var target models.InstanceStatus
	switch {
	case allSynced:
		target = models.StatusUploaded
	case archiveSynced:
		target = models.StatusExported
	default:
		return
	}

	if _, err := s.repomanager.Instances(s.db).Advance(ctx, instanceID, target, s.clock.Now()); err != nil {
		s.log.Error(ctx, "failed to advance instance", "instance", instanceID, "error", err)
	}
}

// reconcilePending asks the server which delivered files it never got and
// feeds the answer back into the ledger. Instances that are UPLOADED and
// have nothing missing become SYNCED.
func (s *syncService) reconcilePending(ctx context.Context) error {
	trRepo := s.repomanager.Transmissions(s.db)
	instRepo := s.repomanager.Instances(s.db)

	uploaded, err := instRepo.ListByStatus(ctx, models.StatusUploaded)
	if err != nil {
		return err
	}
	pending, err := trRepo.PendingWork(ctx)
	if err != nil {
		return err
	}

	formIDs := make([]string, 0)
	seen := make(map[string]struct{})
	addForm := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		formIDs = append(formIDs, id)
	}
	for _, inst := range uploaded {
		addForm(inst.FormID)
	}
	for _, t := range pending {
		addForm(t.FormID)
	}
	if len(formIDs) == 0 {
		return nil
	}

	resp, err := s.metadata.PendingFiles(ctx, formIDs)
	if err != nil {
		return err
	}

	missing := make(map[string]struct{})
	for _, name := range resp.MissingFiles {
		missing[path.Base(name)] = struct{}{}
		if err := s.markMissing(ctx, name, false); err != nil {
			return err
		}
	}
	for _, name := range resp.MissingUnknown {
		missing[path.Base(name)] = struct{}{}
		if err := s.markMissing(ctx, name, true); err != nil {
			return err
		}
	}

	if len(resp.DeletedForms) > 0 {
		if err := s.repomanager.Forms(s.db).MarkDeleted(ctx, resp.DeletedForms...); err != nil {
			return err
		}
	}

	for _, inst := range uploaded {
		list, err := trRepo.ListByInstance(ctx, inst.ID)
		if err != nil {
			return err
		}
		complete := true
		for _, t := range list {
			if _, ok := missing[path.Base(t.Filename)]; ok || t.Status != models.TransmissionSynced {
				complete = false
				break
			}
		}
		if complete {
			if _, err := instRepo.Advance(ctx, inst.ID, models.StatusSynced, s.clock.Now()); err != nil {
				return err
			}
		}
	}
	return nil
}

// markMissing fails the ledger record of a file the server does not have,
// creating one when the ledger never knew it. requireLocal limits creation
// to files present on this device.
func (s *syncService) markMissing(ctx context.Context, name string, requireLocal bool) error {
	trRepo := s.repomanager.Transmissions(s.db)

	n, err := trRepo.MarkFailed(ctx, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := trRepo.GetByFilename(ctx, name); err == nil {
		return nil
	} else if !notFound(err) {
		return err
	}

	t := &models.Transmission{
		InstanceID: models.UnknownInstanceID,
		Filename:   name,
		ObjectKey:  objectKeyFor(name),
		Status:     models.TransmissionFailed,
	}
	if requireLocal && !filex.Exists(s.localPath(t)) {
		return nil
	}
	if !strings.HasPrefix(t.ObjectKey, objectstore.DirArchives+"/") {
		t.Public = s.publicMedia
	}

	s.log.Warn(ctx, "server reports unknown file missing", "filename", name)
	return trRepo.Create(ctx, t)
}
