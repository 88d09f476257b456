package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

func TestSave_AssignsUUIDAndDates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inst := &models.SurveyInstance{FormID: "f1"}
	require.NoError(t, e.instances.Save(ctx, inst, []*models.Response{{QuestionID: "q1", Answer: "a"}}))
	require.NotEmpty(t, inst.UUID)

	got := e.instance(t, inst.UUID)
	assert.Equal(t, models.StatusSaved, got.Status)
	assert.Equal(t, t0, got.SavedDate)
	assert.Equal(t, t0, got.StartDate)
}

func TestMarkSubmitRequested_OnlyFromSaved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.instances.Save(ctx, &models.SurveyInstance{UUID: "u1", FormID: "f1"}, nil))
	require.NoError(t, e.instances.MarkSubmitRequested(ctx, "u1"))

	err := e.instances.MarkSubmitRequested(ctx, "u1")
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = e.instances.MarkSubmitRequested(ctx, "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResend_RequeuesAndRewinds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.instances.Save(ctx, &models.SurveyInstance{UUID: "draft", FormID: "f1"}, nil))
	require.ErrorIs(t, e.instances.Resend(ctx, "draft"), ErrInvalidTransition)

	inst := e.submit(t, "u1")
	_, err := e.sync.Push(ctx)
	require.NoError(t, err)
	require.Equal(t, models.StatusUploaded, e.instance(t, "u1").Status)

	require.NoError(t, e.instances.Resend(ctx, "u1"))
	assert.Equal(t, models.StatusSubmitted, e.instance(t, "u1").Status)
	for _, tr := range e.transmissions(t, inst.ID) {
		assert.Equal(t, models.TransmissionQueued, tr.Status)
	}

	report, err := e.sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, models.StatusUploaded, e.instance(t, "u1").Status)
}

func TestStatus_Counts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.instances.Save(ctx, &models.SurveyInstance{UUID: "draft", FormID: "f1"}, nil))
	e.writeMedia(t, "p.jpg", "x")
	e.submit(t, "u1", "p.jpg")

	summary, err := e.instances.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.InstanceStatus]int{
		models.StatusSaved:     1,
		models.StatusSubmitted: 1,
	}, summary.Instances)
	assert.Equal(t, 2, summary.Transmissions[models.TransmissionQueued])
}
