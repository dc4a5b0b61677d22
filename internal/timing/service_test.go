package timing_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/realtime"
	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

type fakeBroadcaster struct {
	mu      sync.Mutex
	scoped  []scopedEvent
	global  []realtime.Event
	dropped []string
}

type scopedEvent struct {
	timingPointID string
	event         realtime.Event
}

func (f *fakeBroadcaster) Publish(timingPointID string, event realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoped = append(f.scoped, scopedEvent{timingPointID: timingPointID, event: event})
}

func (f *fakeBroadcaster) BroadcastGlobal(event realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global = append(f.global, event)
}

func (f *fakeBroadcaster) DropTimingPoint(timingPointID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, timingPointID)
}

func (f *fakeBroadcaster) events(timingPointID string) []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []realtime.Event
	for _, se := range f.scoped {
		if se.timingPointID == timingPointID {
			out = append(out, se.event)
		}
	}
	return out
}

func newTestService(t *testing.T) (*timing.Service, *store.FileStore, *csvexport.Materializer, *fakeBroadcaster) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	require.NoError(t, err)
	csv, err := csvexport.NewMaterializer(dir)
	require.NoError(t, err)
	hub := &fakeBroadcaster{}
	return timing.NewService(st, csv, hub), st, csv, hub
}

func TestSubmitEntryValidation(t *testing.T) {
	svc, st, csv, hub := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitEntry(ctx, "tp1", "", time.Now())
	assert.ErrorIs(t, err, timing.ErrValidation)

	_, err = svc.SubmitEntry(ctx, "tp1", "42", time.Time{})
	assert.ErrorIs(t, err, timing.ErrValidation)

	// nothing was applied: no log, no artifact, no event
	entries, err := st.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, csv.Exists("tp1"))
	assert.Empty(t, hub.events("tp1"))
}

func TestFoldOfMutationsMatchesRequestOrder(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	a, err := svc.SubmitEntry(ctx, "tp1", "1", base)
	require.NoError(t, err)
	b, err := svc.SubmitEntry(ctx, "tp1", "2", base.Add(time.Second))
	require.NoError(t, err)
	c, err := svc.SubmitEntry(ctx, "tp1", "3", base.Add(2*time.Second))
	require.NoError(t, err)

	_, err = svc.CorrectEntry(ctx, "tp1", b.ID, "22")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEntry(ctx, "tp1", a.ID))

	entries, err := st.Entries(ctx, "tp1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, "22", entries[0].StartNumber)
	assert.Equal(t, b.Timestamp.UTC(), entries[0].Timestamp.UTC())
	assert.Equal(t, c.ID, entries[1].ID)
	assert.Equal(t, "3", entries[1].StartNumber)
}

func TestCorrectionPreservesIdentityAndTimestamp(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	captured := time.Date(2025, 6, 14, 10, 30, 15, 480_000_000, time.UTC)

	entry, err := svc.SubmitEntry(ctx, "tp1", "7", captured)
	require.NoError(t, err)

	updated, err := svc.CorrectEntry(ctx, "tp1", entry.ID, "17")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, updated.ID)
	assert.Equal(t, "tp1", updated.TimingPointID)
	assert.Equal(t, "17", updated.StartNumber)
	assert.Equal(t, captured, updated.Timestamp.UTC())
}

func TestNotFoundErrors(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CorrectEntry(ctx, "tp1", "missing", "9")
	assert.ErrorIs(t, err, timing.ErrNotFound)

	err = svc.DeleteEntry(ctx, "tp1", "missing")
	assert.ErrorIs(t, err, timing.ErrNotFound)
}

func TestDuplicateSubmissionScenario(t *testing.T) {
	svc, _, csv, hub := newTestService(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 14, 11, 0, 0, 0, time.UTC)
	t1 := t0.Add(3 * time.Second)

	_, err := svc.SubmitEntry(ctx, "tp1", "42", t0)
	require.NoError(t, err)
	_, err = svc.SubmitEntry(ctx, "tp1", "42", t1)
	require.NoError(t, err)

	entries, err := svc.Entries(ctx, "tp1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]int{"42": 2}, timing.Duplicates(entries))

	events := hub.events("tp1")
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EntryAdded, events[0].Type)
	assert.Equal(t, realtime.EntryAdded, events[1].Type)
	first, ok := events[0].Data.(timing.Entry)
	require.True(t, ok)
	second, ok := events[1].Data.(timing.Entry)
	require.True(t, ok)
	assert.Equal(t, t0, first.Timestamp.UTC())
	assert.Equal(t, t1, second.Timestamp.UTC())

	data, err := os.ReadFile(csv.Path("tp1"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "42;"))
	assert.True(t, strings.HasPrefix(lines[2], "42;"))
	assert.Contains(t, lines[1], "2025-06-14T11:00:00.000Z")
	assert.Contains(t, lines[2], "2025-06-14T11:00:03.000Z")
}

func TestCsvRegeneratedOnEveryMutation(t *testing.T) {
	svc, _, csv, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)

	entry, err := svc.SubmitEntry(ctx, "tp1", "5", base)
	require.NoError(t, err)
	afterSubmit, err := os.ReadFile(csv.Path("tp1"))
	require.NoError(t, err)
	assert.Contains(t, string(afterSubmit), "5;")

	_, err = svc.CorrectEntry(ctx, "tp1", entry.ID, "55")
	require.NoError(t, err)
	afterCorrect, err := os.ReadFile(csv.Path("tp1"))
	require.NoError(t, err)
	assert.Contains(t, string(afterCorrect), "55;")
	assert.NotContains(t, string(afterCorrect), "\n5;")

	require.NoError(t, svc.DeleteEntry(ctx, "tp1", entry.ID))
	afterDelete, err := os.ReadFile(csv.Path("tp1"))
	require.NoError(t, err)
	assert.Equal(t, "Startnummer;Datum;Uhrzeit;Zeitstempel\n", string(afterDelete))
}

func TestMarkDnfDnsReplacesPriorMark(t *testing.T) {
	svc, _, _, hub := newTestService(t)
	ctx := context.Background()

	records, err := svc.MarkDnfDns(ctx, "tp1", "7", timing.StatusDNS)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, timing.StatusDNS, records[0].Type)

	records, err = svc.MarkDnfDns(ctx, "tp1", "7", timing.StatusDNF)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, timing.StatusDNF, records[0].Type)

	events := hub.events("tp1")
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, realtime.DnfDnsChanged, e.Type)
	}
	// the broadcast carries the full set, not a delta
	set, ok := events[1].Data.([]timing.DnfDnsRecord)
	require.True(t, ok)
	require.Len(t, set, 1)
	assert.Equal(t, timing.StatusDNF, set[0].Type)
}

func TestMarkDnfDnsValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.MarkDnfDns(ctx, "tp1", "", timing.StatusDNF)
	assert.ErrorIs(t, err, timing.ErrValidation)

	_, err = svc.MarkDnfDns(ctx, "tp1", "7", "DSQ")
	assert.ErrorIs(t, err, timing.ErrValidation)
}

func TestUnmarkDnfDnsAbsentIsNoError(t *testing.T) {
	svc, _, _, hub := newTestService(t)
	ctx := context.Background()

	records, err := svc.UnmarkDnfDns(ctx, "tp1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
	// the change event still goes out with the current (empty) set
	assert.Len(t, hub.events("tp1"), 1)
}

func TestMutationsOnOtherTimingPointsAreIndependent(t *testing.T) {
	svc, _, _, hub := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.SubmitEntry(ctx, "tpA", "1", now)
	require.NoError(t, err)
	_, err = svc.SubmitEntry(ctx, "tpB", "2", now)
	require.NoError(t, err)

	a, err := svc.Entries(ctx, "tpA")
	require.NoError(t, err)
	b, err := svc.Entries(ctx, "tpB")
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "1", a[0].StartNumber)
	assert.Equal(t, "2", b[0].StartNumber)
	assert.Len(t, hub.events("tpA"), 1)
	assert.Len(t, hub.events("tpB"), 1)
}

func TestConcurrentSubmitsOnOnePointLoseNothing(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitEntry(ctx, "tp1", "99", time.Now().UTC())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := svc.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestTeardownRemovesAllDerivedState(t *testing.T) {
	svc, st, csv, hub := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.SubmitEntry(ctx, "tp1", "8", time.Now().UTC())
		require.NoError(t, err)
	}
	_, err := svc.MarkDnfDns(ctx, "tp1", "9", timing.StatusDNF)
	require.NoError(t, err)
	require.True(t, csv.Exists("tp1"))

	require.NoError(t, svc.Teardown(ctx, "tp1"))

	entries, err := st.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	records, err := st.DnfDns(ctx, "tp1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, csv.Exists("tp1"))
	assert.Contains(t, hub.dropped, "tp1")
}
