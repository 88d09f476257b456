package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

func datapoint(id string, lastModified int64, uuids ...string) gateway.Datapoint {
	dp := gateway.Datapoint{ID: id, DisplayName: "point " + id, Latitude: 52.1, Longitude: 4.3, LastModified: lastModified}
	for _, u := range uuids {
		dp.SurveyInstances = append(dp.SurveyInstances, gateway.SurveyInstance{
			UUID:           u,
			FormID:         "reg",
			FormVersion:    "3.0",
			Submitter:      "remote",
			CollectionDate: lastModified,
			Answers:        []gateway.QuestionAnswer{{QuestionID: "name", Answer: "well " + id, Type: models.ResponseTypeValue}},
		})
	}
	return dp
}

func TestPull_MergesIncrementally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.srv.AddDatapoints(testGroup,
		datapoint("d1", 100, "r1"),
		datapoint("d2", 200, "r2"),
		datapoint("d3", 300, "r3"),
		datapoint("empty", 250),
	)

	report, err := e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Merged)
	assert.Equal(t, int64(300), report.Cursor)

	cursor, err := e.rm.Cursors(e.db).Get(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(300), cursor)

	records, err := e.instances.Records(ctx, testGroup)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	inst := e.instance(t, "r2")
	assert.Equal(t, models.StatusDownloaded, inst.Status)
	assert.Equal(t, "d2", inst.RecordID)
	list := e.transmissions(t, inst.ID)
	require.Len(t, list, 1)
	assert.Equal(t, models.TransmissionSynced, list[0].Status)

	responses, err := e.rm.Instances(e.db).ListResponses(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "well d2", responses[0].Answer)

	// a second pull sees only what it already has
	again, err := e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)
	assert.Zero(t, again.Merged)
	assert.Equal(t, int64(300), again.Cursor)
}

func TestPull_NewerRemoteVersionWins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.srv.AddDatapoints(testGroup, datapoint("d1", 100, "r1"), datapoint("d2", 200, "r2"))
	_, err := e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)

	updated := datapoint("d1", 400, "r1")
	updated.DisplayName = "renamed"
	e.srv.AddDatapoints(testGroup, updated)

	report, err := e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, int64(400), report.Cursor)

	rec, err := e.rm.Records(e.db).Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", rec.Name)
	assert.Equal(t, int64(400), rec.LastModified)
}

func TestPull_KeepsLocalInstances(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.instances.Save(ctx, &models.SurveyInstance{UUID: "mine", FormID: "f1"}, nil))
	e.srv.AddDatapoints(testGroup, datapoint("d1", 100, "mine"))

	_, err := e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)

	inst := e.instance(t, "mine")
	assert.Equal(t, models.StatusSaved, inst.Status)
	assert.Equal(t, "f1", inst.FormID)
	assert.Empty(t, e.transmissions(t, inst.ID))
}

func TestPull_UnassignedGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	report, err := e.sync.Pull(ctx, 99)
	require.ErrorIs(t, err, gateway.ErrAssignmentRequired)
	assert.Zero(t, report.Merged)

	cursor, err := e.rm.Cursors(e.db).Get(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, cursor)
}

func TestPull_FailureKeepsLastMergedCursor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	fake := &fakeMetadata{
		batches: []*gateway.DatapointBatch{
			{Datapoints: []gateway.Datapoint{datapoint("d1", 100, "r1")}, NextCursor: 100},
		},
		errs: []error{nil, gateway.ErrUnavailable},
	}
	svc := NewSyncService(SyncDeps{DB: e.db, Repositories: e.rm, Metadata: fake, Objects: e.objects, Files: e.files, Clock: e.clock})

	report, err := svc.Pull(ctx, testGroup)
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 2, fake.calls)

	cursor, err := e.rm.Cursors(e.db).Get(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(100), cursor)
}

func TestPull_DropsRepeatedBoundaryItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d1 := datapoint("d1", 100, "r1")
	d2 := datapoint("d2", 100, "r2")
	fake := &fakeMetadata{
		batches: []*gateway.DatapointBatch{
			{Datapoints: []gateway.Datapoint{d1, d2}, NextCursor: 100},
			{Datapoints: []gateway.Datapoint{d1, d2}, NextCursor: 100},
		},
	}
	svc := NewSyncService(SyncDeps{DB: e.db, Repositories: e.rm, Metadata: fake, Objects: e.objects, Files: e.files, Clock: e.clock})

	report, err := svc.Pull(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Merged)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, int64(100), report.Cursor)
}

func TestPruneRecords_DropsRecordsWithoutInstances(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.rm.Records(e.db).Upsert(ctx, &models.Record{RecordID: "lonely", SurveyGroupID: testGroup, LastModified: 10})
	require.NoError(t, err)
	e.srv.AddDatapoints(testGroup, datapoint("d1", 100, "r1"))
	_, err = e.sync.Pull(ctx, testGroup)
	require.NoError(t, err)

	n, err := e.instances.PruneRecords(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := e.instances.Records(ctx, testGroup)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "d1", records[0].RecordID)
}
