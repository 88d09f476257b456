package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/archive"
	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// Pull fetches datapoint batches for a survey group until the server has
// nothing new. Each batch is merged and the cursor advanced in the same
// transaction, so a failure leaves the cursor at the last merged batch and
// the next pull asks for the same window again.
func (s *syncService) Pull(ctx context.Context, surveyGroupID int64) (*PullReport, error) {
	report := &PullReport{SurveyGroupID: surveyGroupID}

	cursor, err := s.repomanager.Cursors(s.db).Get(ctx, surveyGroupID)
	if err != nil {
		return report, err
	}
	report.Cursor = cursor

	var prev map[string]int64
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := s.metadata.FetchDatapoints(ctx, surveyGroupID, cursor)
		if err != nil {
			return report, err
		}
		report.Batches++

		fresh := make([]gateway.Datapoint, 0, len(batch.Datapoints))
		for _, dp := range batch.Datapoints {
			if lm, ok := prev[dp.ID]; ok && lm == dp.LastModified {
				continue
			}
			fresh = append(fresh, dp)
		}
		if len(fresh) == 0 {
			break
		}

		merged, err := s.merge(ctx, surveyGroupID, fresh, batch.NextCursor)
		if err != nil {
			return report, err
		}
		report.Fetched += len(fresh)
		report.Merged += merged

		advanced := batch.NextCursor != cursor
		cursor = batch.NextCursor
		report.Cursor = cursor
		if !advanced {
			break
		}

		prev = make(map[string]int64, len(batch.Datapoints))
		for _, dp := range batch.Datapoints {
			prev[dp.ID] = dp.LastModified
		}
	}

	if report.Merged > 0 {
		s.log.Info(ctx, "datapoints merged", "group", surveyGroupID, "merged", report.Merged, "cursor", report.Cursor)
	}
	return report, nil
}

// merge applies datapoints with last-write-wins on their LastModified and
// reports how many were applied.
func (s *syncService) merge(ctx context.Context, surveyGroupID int64, dps []gateway.Datapoint, next int64) (int, error) {
	merged := 0

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recRepo := s.repomanager.Records(tx)
		instRepo := s.repomanager.Instances(tx)
		trRepo := s.repomanager.Transmissions(tx)

		for _, dp := range dps {
			if len(dp.SurveyInstances) == 0 {
				continue
			}

			applied, err := recRepo.Upsert(ctx, &models.Record{
				RecordID:      dp.ID,
				SurveyGroupID: surveyGroupID,
				Name:          dp.DisplayName,
				Latitude:      dp.Latitude,
				Longitude:     dp.Longitude,
				LastModified:  dp.LastModified,
			})
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			merged++

			for _, si := range dp.SurveyInstances {
				inst := &models.SurveyInstance{
					UUID:          si.UUID,
					FormID:        si.FormID,
					FormVersion:   si.FormVersion,
					RecordID:      dp.ID,
					Submitter:     si.Submitter,
					Status:        models.StatusDownloaded,
					SubmittedDate: models.FromMillis(si.CollectionDate),
				}
				ok, err := instRepo.UpsertDownloaded(ctx, inst)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}

				for _, qa := range si.Answers {
					err := instRepo.SaveResponse(ctx, &models.Response{
						InstanceID: inst.ID,
						QuestionID: qa.QuestionID,
						Iteration:  qa.Iteration,
						Answer:     qa.Answer,
						Type:       qa.Type,
					})
					if err != nil {
						return err
					}
				}

				filename := si.UUID + archive.Suffix
				err = trRepo.Create(ctx, &models.Transmission{
					InstanceID: inst.ID,
					FormID:     si.FormID,
					Filename:   filename,
					ObjectKey:  objectstore.ArchiveKey(filename),
					Status:     models.TransmissionSynced,
				})
				if err != nil {
					return err
				}
			}
		}

		return s.repomanager.Cursors(tx).Set(ctx, surveyGroupID, next)
	})
	if err != nil {
		return 0, fmt.Errorf("error merging datapoints: %w", err)
	}
	return merged, nil
}
