package directory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhaf82/Handtiming/internal/directory"
	"github.com/simhaf82/Handtiming/internal/startlist"
	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

type teardownRecorder struct {
	ids []string
}

func (r *teardownRecorder) fn(_ context.Context, timingPointIDs ...string) error {
	r.ids = append(r.ids, timingPointIDs...)
	return nil
}

func newTestDirectory(t *testing.T) (*directory.Service, *store.FileStore, *teardownRecorder) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	rec := &teardownRecorder{}
	return directory.New(st, rec.fn), st, rec
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, _ := newTestDirectory(t)
	_, err := svc.CreateEvent(context.Background(), directory.EventInput{Name: "  "})
	assert.ErrorIs(t, err, timing.ErrValidation)
}

func TestEventLifecycle(t *testing.T) {
	svc, _, _ := newTestDirectory(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, directory.EventInput{
		Name: "Stadtlauf", Location: "München", Date: "2025-06-14", StartTime: "10:00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := svc.Event(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stadtlauf", got.Name)

	updated, err := svc.UpdateEvent(ctx, created.ID, directory.EventInput{Location: "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "Stadtlauf", updated.Name)
	assert.Equal(t, "Berlin", updated.Location)

	_, err = svc.Event(ctx, "missing")
	assert.ErrorIs(t, err, timing.ErrNotFound)
}

func TestTimingPointPositionsAssignedSequentially(t *testing.T) {
	svc, _, _ := newTestDirectory(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Stadtlauf"})
	require.NoError(t, err)

	start, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Start"})
	require.NoError(t, err)
	finish, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)
	assert.Equal(t, 0, start.Position)
	assert.Equal(t, 1, finish.Position)

	_, err = svc.CreateTimingPoint(ctx, "missing", directory.TimingPointInput{Name: "X"})
	assert.ErrorIs(t, err, timing.ErrNotFound)
}

func TestReorder(t *testing.T) {
	svc, _, _ := newTestDirectory(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Stadtlauf"})
	require.NoError(t, err)
	a, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Start"})
	require.NoError(t, err)
	b, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)

	ordered, err := svc.Reorder(ctx, event.ID, []string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, b.ID, ordered[0].ID)
	assert.Equal(t, a.ID, ordered[1].ID)

	_, err = svc.Reorder(ctx, event.ID, []string{a.ID})
	assert.ErrorIs(t, err, timing.ErrValidation)
	_, err = svc.Reorder(ctx, event.ID, []string{a.ID, b.ID, "stranger"})
	assert.ErrorIs(t, err, timing.ErrValidation)
}

func TestDeleteTimingPointTriggersTeardown(t *testing.T) {
	svc, _, rec := newTestDirectory(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Stadtlauf"})
	require.NoError(t, err)
	tp, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTimingPoint(ctx, tp.ID))
	assert.Equal(t, []string{tp.ID}, rec.ids)

	exists, err := svc.Exists(ctx, tp.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = svc.DeleteTimingPoint(ctx, tp.ID)
	assert.ErrorIs(t, err, timing.ErrNotFound)
}

func TestDeleteEventCascades(t *testing.T) {
	svc, st, rec := newTestDirectory(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Stadtlauf"})
	require.NoError(t, err)
	other, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Waldlauf"})
	require.NoError(t, err)

	tp1, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Start"})
	require.NoError(t, err)
	tp2, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)
	kept, err := svc.CreateTimingPoint(ctx, other.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)

	_, err = startlist.New(st).Import(ctx, event.ID, strings.NewReader("1;Meier\n"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(ctx, event.ID))

	assert.ElementsMatch(t, []string{tp1.ID, tp2.ID}, rec.ids)

	_, err = svc.Event(ctx, event.ID)
	assert.ErrorIs(t, err, timing.ErrNotFound)
	rows, err := st.Startlist(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// the other event is untouched
	points, err := svc.TimingPoints(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, kept.ID, points[0].ID)
}

func TestOwnerEvent(t *testing.T) {
	svc, _, _ := newTestDirectory(t)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, directory.EventInput{Name: "Stadtlauf"})
	require.NoError(t, err)
	tp, err := svc.CreateTimingPoint(ctx, event.ID, directory.TimingPointInput{Name: "Ziel"})
	require.NoError(t, err)

	owner, err := svc.OwnerEvent(ctx, tp.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, owner)
}
