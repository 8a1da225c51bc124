package shiftworker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository/memory"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *notifier.MemorySink) {
	repo := memory.NewShiftWorkerRepository()
	sink := notifier.NewMemorySink()
	return NewService(repo, sink, clock.NewFake(testNow)), sink
}

func createWorker(t *testing.T, svc *Service) *model.ShiftWorker {
	t.Helper()
	created, err := svc.Create(context.Background(), &model.CreateShiftWorkerRequest{
		Name:  "Olaf",
		Phone: "+491512345678",
		Site:  "plant-north",
	})
	require.NoError(t, err)
	return created
}

func TestCreateRequiresNameAndSite(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), &model.CreateShiftWorkerRequest{Site: "plant-north"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Create(context.Background(), &model.CreateShiftWorkerRequest{Name: "Olaf"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckpointRoundTrip(t *testing.T) {
	svc, sink := newTestService()
	worker := createWorker(t, svc)

	due := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	issued, err := svc.ReissueCheckpoint(context.Background(), worker.ID, &model.ReissueCheckpointRequest{
		Label: "return-travel",
		Date:  due,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointStatusPending, issued.CheckpointStatus)
	assert.Equal(t, "return-travel", issued.CurrentCheckpoint)

	responded, err := svc.RecordCheckpointResponse(context.Background(), worker.ID, "on the train")
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointStatusResponded, responded.CheckpointStatus)
	require.NotNil(t, responded.CheckpointResponse)
	assert.Equal(t, "on the train", *responded.CheckpointResponse)

	// A resolved checkpoint rejects another response until reissued.
	_, err = svc.RecordCheckpointResponse(context.Background(), worker.ID, "again")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	reissued, err := svc.ReissueCheckpoint(context.Background(), worker.ID, &model.ReissueCheckpointRequest{
		Label: "arrival-confirmation",
		Date:  due.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointStatusPending, reissued.CheckpointStatus)
	assert.Nil(t, reissued.CheckpointResponse)

	assert.Len(t, sink.Named("checkpoint.reissued"), 2)
	assert.Len(t, sink.Named("checkpoint.responded"), 1)
}

func TestConfirmReturn(t *testing.T) {
	svc, sink := newTestService()
	worker := createWorker(t, svc)

	confirmed, err := svc.ConfirmReturn(context.Background(), worker.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.ReturnConfirmed)
	assert.Len(t, sink.Named("shiftworker.return_confirmed"), 1)
}
