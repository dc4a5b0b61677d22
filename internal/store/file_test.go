package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhaf82/Handtiming/internal/timing"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFileStoreMissingSnapshotsReadAsZero(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	events, err := s.Events(ctx)
	require.NoError(t, err)
	assert.Nil(t, events)

	entries, err := s.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestFileStoreEntriesRoundtrip(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	in := []timing.Entry{
		{ID: "e1", TimingPointID: "tp1", StartNumber: "42", Timestamp: ts, CreatedAt: ts},
		{ID: "e2", TimingPointID: "tp1", StartNumber: "7", Timestamp: ts.Add(time.Second), CreatedAt: ts},
	}
	require.NoError(t, s.SaveEntries(ctx, "tp1", in))

	out, err := s.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// logs are keyed per timing point
	other, err := s.Entries(ctx, "tp2")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEntries(ctx, "tp1", []timing.Entry{{ID: "e1"}}))
	require.NoError(t, s.DeleteEntries(ctx, "tp1"))
	require.NoError(t, s.DeleteEntries(ctx, "tp1"))

	entries, err := s.Entries(ctx, "tp1")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestFileStoreSettingsDefaultUntilSaved(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, timing.DefaultSettings(), settings)
	assert.False(t, settings.EmailConfigured())

	settings.EmailSMTP = "smtp.example.org"
	settings.EmailUser = "orga@example.org"
	require.NoError(t, s.SaveSettings(ctx, settings))

	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings, got)
	assert.True(t, got.EmailConfigured())
}

func TestFileStoreWriteLeavesNoTempFile(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEvents(ctx, []timing.Event{{ID: "ev1", Name: "Stadtlauf"}}))

	matches, err := filepath.Glob(filepath.Join(s.Dir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = os.Stat(filepath.Join(s.Dir(), "events.json"))
	assert.NoError(t, err)
}

func TestFileStorePing(t *testing.T) {
	s := newFileStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
