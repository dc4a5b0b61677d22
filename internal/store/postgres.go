package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/simhaf82/Handtiming/internal/timing"
)

// PgStore keeps the same snapshot documents as FileStore in a single
// key/jsonb table. The document granularity is identical, so the
// read-modify-write semantics carry over unchanged.
type PgStore struct {
	db *sql.DB
}

// NewPgStore connects via pgx and ensures the snapshot table exists.
func NewPgStore(connString string) (*PgStore, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("ensure snapshots table: %w", err)
	}
	return &PgStore{db: db}, nil
}

// Close closes the underlying pool.
func (s *PgStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PgStore) read(ctx context.Context, key string, v any) error {
	var doc []byte
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM snapshots WHERE key = $1`, key)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (s *PgStore) write(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`, key, doc)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

func (s *PgStore) remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove snapshot %s: %w", key, err)
	}
	return nil
}

func (s *PgStore) Events(ctx context.Context) ([]timing.Event, error) {
	var events []timing.Event
	err := s.read(ctx, eventsKey(), &events)
	return events, err
}

func (s *PgStore) SaveEvents(ctx context.Context, events []timing.Event) error {
	return s.write(ctx, eventsKey(), events)
}

func (s *PgStore) TimingPoints(ctx context.Context) ([]timing.TimingPoint, error) {
	var points []timing.TimingPoint
	err := s.read(ctx, timingPointsKey(), &points)
	return points, err
}

func (s *PgStore) SaveTimingPoints(ctx context.Context, points []timing.TimingPoint) error {
	return s.write(ctx, timingPointsKey(), points)
}

func (s *PgStore) Entries(ctx context.Context, timingPointID string) ([]timing.Entry, error) {
	var entries []timing.Entry
	err := s.read(ctx, entriesKey(timingPointID), &entries)
	return entries, err
}

func (s *PgStore) SaveEntries(ctx context.Context, timingPointID string, entries []timing.Entry) error {
	return s.write(ctx, entriesKey(timingPointID), entries)
}

func (s *PgStore) DeleteEntries(ctx context.Context, timingPointID string) error {
	return s.remove(ctx, entriesKey(timingPointID))
}

func (s *PgStore) DnfDns(ctx context.Context, timingPointID string) ([]timing.DnfDnsRecord, error) {
	var records []timing.DnfDnsRecord
	err := s.read(ctx, dnfDnsKey(timingPointID), &records)
	return records, err
}

func (s *PgStore) SaveDnfDns(ctx context.Context, timingPointID string, records []timing.DnfDnsRecord) error {
	return s.write(ctx, dnfDnsKey(timingPointID), records)
}

func (s *PgStore) DeleteDnfDns(ctx context.Context, timingPointID string) error {
	return s.remove(ctx, dnfDnsKey(timingPointID))
}

func (s *PgStore) Startlist(ctx context.Context, eventID string) ([]timing.StartlistRow, error) {
	var rows []timing.StartlistRow
	err := s.read(ctx, startlistKey(eventID), &rows)
	return rows, err
}

func (s *PgStore) SaveStartlist(ctx context.Context, eventID string, rows []timing.StartlistRow) error {
	return s.write(ctx, startlistKey(eventID), rows)
}

func (s *PgStore) DeleteStartlist(ctx context.Context, eventID string) error {
	return s.remove(ctx, startlistKey(eventID))
}

func (s *PgStore) Settings(ctx context.Context) (timing.Settings, error) {
	settings := timing.DefaultSettings()
	err := s.read(ctx, settingsKey(), &settings)
	return settings, err
}

func (s *PgStore) SaveSettings(ctx context.Context, settings timing.Settings) error {
	return s.write(ctx, settingsKey(), settings)
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
