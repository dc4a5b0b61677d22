package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/simhaf82/Handtiming/internal/timing"
)

// FileStore keeps every snapshot as a pretty-printed JSON document in a
// flat data directory. Writes go through a temp file plus rename so a
// crash never leaves a half-written snapshot behind.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory, also home of the CSV artifacts.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) read(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // missing snapshot reads as the zero value
		}
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Events(context.Context) ([]timing.Event, error) {
	var events []timing.Event
	err := s.read(eventsKey(), &events)
	return events, err
}

func (s *FileStore) SaveEvents(_ context.Context, events []timing.Event) error {
	return s.write(eventsKey(), events)
}

func (s *FileStore) TimingPoints(context.Context) ([]timing.TimingPoint, error) {
	var points []timing.TimingPoint
	err := s.read(timingPointsKey(), &points)
	return points, err
}

func (s *FileStore) SaveTimingPoints(_ context.Context, points []timing.TimingPoint) error {
	return s.write(timingPointsKey(), points)
}

func (s *FileStore) Entries(_ context.Context, timingPointID string) ([]timing.Entry, error) {
	var entries []timing.Entry
	err := s.read(entriesKey(timingPointID), &entries)
	return entries, err
}

func (s *FileStore) SaveEntries(_ context.Context, timingPointID string, entries []timing.Entry) error {
	return s.write(entriesKey(timingPointID), entries)
}

func (s *FileStore) DeleteEntries(_ context.Context, timingPointID string) error {
	return s.remove(entriesKey(timingPointID))
}

func (s *FileStore) DnfDns(_ context.Context, timingPointID string) ([]timing.DnfDnsRecord, error) {
	var records []timing.DnfDnsRecord
	err := s.read(dnfDnsKey(timingPointID), &records)
	return records, err
}

func (s *FileStore) SaveDnfDns(_ context.Context, timingPointID string, records []timing.DnfDnsRecord) error {
	return s.write(dnfDnsKey(timingPointID), records)
}

func (s *FileStore) DeleteDnfDns(_ context.Context, timingPointID string) error {
	return s.remove(dnfDnsKey(timingPointID))
}

func (s *FileStore) Startlist(_ context.Context, eventID string) ([]timing.StartlistRow, error) {
	var rows []timing.StartlistRow
	err := s.read(startlistKey(eventID), &rows)
	return rows, err
}

func (s *FileStore) SaveStartlist(_ context.Context, eventID string, rows []timing.StartlistRow) error {
	return s.write(startlistKey(eventID), rows)
}

func (s *FileStore) DeleteStartlist(_ context.Context, eventID string) error {
	return s.remove(startlistKey(eventID))
}

func (s *FileStore) Settings(context.Context) (timing.Settings, error) {
	settings := timing.DefaultSettings()
	if _, err := os.Stat(s.path(settingsKey())); errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	err := s.read(settingsKey(), &settings)
	return settings, err
}

func (s *FileStore) SaveSettings(_ context.Context, settings timing.Settings) error {
	return s.write(settingsKey(), settings)
}

func (s *FileStore) Ping(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}
