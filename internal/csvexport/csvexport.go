// Package csvexport materializes a timing point's entry log as a CSV
// artifact on disk. The artifact is regenerated from scratch after every
// log mutation and persisted, so exports, emails and downloads can be
// served straight from the file without touching the live log.
package csvexport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/simhaf82/Handtiming/internal/timing"
)

var header = []string{"Startnummer", "Datum", "Uhrzeit", "Zeitstempel"}

// Build renders the CSV projection of a log: the fixed header, then one
// row per entry in log order. Deterministic, byte for byte, and valid
// for an empty log (header only).
func Build(entries []timing.Entry) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	_ = w.Write(header)
	for _, e := range entries {
		_ = w.Write([]string{
			e.StartNumber,
			e.Timestamp.Format("02.01.2006"),
			formatClock(e),
			e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	w.Flush()
	return buf.Bytes()
}

// formatClock renders the wall time with hundredths, comma-separated the
// way German result lists print it (17:03:21,48).
func formatClock(e timing.Entry) string {
	hundredths := e.Timestamp.Nanosecond() / 10_000_000
	return fmt.Sprintf("%s,%02d", e.Timestamp.Format("15:04:05"), hundredths)
}

// Materializer writes artifacts into one directory, one file per timing
// point.
type Materializer struct {
	dir string
}

// NewMaterializer creates the artifact directory if needed.
func NewMaterializer(dir string) (*Materializer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Materializer{dir: dir}, nil
}

// Path returns where the artifact for a timing point lives.
func (m *Materializer) Path(timingPointID string) string {
	return filepath.Join(m.dir, "entries_"+timingPointID+".csv")
}

// Exists reports whether an artifact has been materialized.
func (m *Materializer) Exists(timingPointID string) bool {
	_, err := os.Stat(m.Path(timingPointID))
	return err == nil
}

// Update regenerates and persists the artifact for the given log state.
func (m *Materializer) Update(timingPointID string, entries []timing.Entry) error {
	tmp := m.Path(timingPointID) + ".tmp"
	if err := os.WriteFile(tmp, Build(entries), 0o644); err != nil {
		return fmt.Errorf("write csv artifact: %w", err)
	}
	if err := os.Rename(tmp, m.Path(timingPointID)); err != nil {
		return fmt.Errorf("replace csv artifact: %w", err)
	}
	return nil
}

// Remove deletes the artifact; missing files are fine.
func (m *Materializer) Remove(timingPointID string) error {
	if err := os.Remove(m.Path(timingPointID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove csv artifact: %w", err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9äöüÄÖÜß_\- ]`)

// SanitizeFilename makes a display name safe for download filenames and
// archive members.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "export"
	}
	return unsafeFilename.ReplaceAllString(name, "_")
}
