package csvexport

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhaf82/Handtiming/internal/timing"
)

func TestBuildEmptyLog(t *testing.T) {
	assert.Equal(t, "Startnummer;Datum;Uhrzeit;Zeitstempel\n", string(Build(nil)))
	assert.Equal(t, "Startnummer;Datum;Uhrzeit;Zeitstempel\n", string(Build([]timing.Entry{})))
}

func TestBuildRowFormat(t *testing.T) {
	ts := time.Date(2025, 6, 14, 17, 3, 21, 480_000_000, time.UTC)
	out := string(Build([]timing.Entry{{StartNumber: "42", Timestamp: ts}}))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "42;14.06.2025;17:03:21,48;2025-06-14T17:03:21.480Z", lines[1])
}

func TestBuildWholeSecondHasZeroHundredths(t *testing.T) {
	ts := time.Date(2025, 6, 14, 9, 0, 5, 0, time.UTC)
	out := string(Build([]timing.Entry{{StartNumber: "7", Timestamp: ts}}))
	assert.Contains(t, out, "09:00:05,00")
}

func TestBuildIsDeterministic(t *testing.T) {
	entries := []timing.Entry{
		{StartNumber: "1", Timestamp: time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)},
		{StartNumber: "2", Timestamp: time.Date(2025, 6, 14, 10, 0, 1, 0, time.UTC)},
	}
	assert.Equal(t, Build(entries), Build(entries))
}

func TestBuildAppendAddsExactlyOneRow(t *testing.T) {
	ts := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	entries := []timing.Entry{{StartNumber: "1", Timestamp: ts}}
	before := string(Build(entries))
	after := string(Build(append(entries, timing.Entry{StartNumber: "2", Timestamp: ts.Add(time.Second)})))

	assert.True(t, strings.HasPrefix(after, before))
	assert.Equal(t, strings.Count(before, "\n")+1, strings.Count(after, "\n"))
}

func TestMaterializerLifecycle(t *testing.T) {
	m, err := NewMaterializer(t.TempDir())
	require.NoError(t, err)

	assert.False(t, m.Exists("tp1"))
	require.NoError(t, m.Update("tp1", []timing.Entry{
		{StartNumber: "5", Timestamp: time.Date(2025, 6, 14, 11, 0, 0, 0, time.UTC)},
	}))
	assert.True(t, m.Exists("tp1"))

	data, err := os.ReadFile(m.Path("tp1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "5;14.06.2025;")

	// regeneration replaces, never appends
	require.NoError(t, m.Update("tp1", nil))
	data, err = os.ReadFile(m.Path("tp1"))
	require.NoError(t, err)
	assert.Equal(t, "Startnummer;Datum;Uhrzeit;Zeitstempel\n", string(data))

	require.NoError(t, m.Remove("tp1"))
	assert.False(t, m.Exists("tp1"))
	// removing again is fine
	require.NoError(t, m.Remove("tp1"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Lauf München 2025", SanitizeFilename("Lauf München 2025"))
	assert.Equal(t, "Ziel_Brücke_", SanitizeFilename("Ziel/Brücke?"))
	assert.Equal(t, "export", SanitizeFilename("   "))
}
