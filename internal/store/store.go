// Package store persists the application state as whole-document
// snapshots: every read returns the full collection for a key and every
// write replaces it. Mutations are read-modify-write on the snapshot,
// serialized by the calling service, which keeps crash-safety mechanics
// to a minimum.
package store

import (
	"context"

	"github.com/simhaf82/Handtiming/internal/timing"
)

// Store is the snapshot persistence contract. The file backend is the
// default; the Postgres backend stores the same documents in a jsonb
// table for deployments that already run a database.
type Store interface {
	// Directory snapshots.
	Events(ctx context.Context) ([]timing.Event, error)
	SaveEvents(ctx context.Context, events []timing.Event) error
	TimingPoints(ctx context.Context) ([]timing.TimingPoint, error)
	SaveTimingPoints(ctx context.Context, points []timing.TimingPoint) error

	// Per-timing-point entry log. A missing log reads as empty.
	Entries(ctx context.Context, timingPointID string) ([]timing.Entry, error)
	SaveEntries(ctx context.Context, timingPointID string, entries []timing.Entry) error
	DeleteEntries(ctx context.Context, timingPointID string) error

	// Per-timing-point DNF/DNS side table.
	DnfDns(ctx context.Context, timingPointID string) ([]timing.DnfDnsRecord, error)
	SaveDnfDns(ctx context.Context, timingPointID string, records []timing.DnfDnsRecord) error
	DeleteDnfDns(ctx context.Context, timingPointID string) error

	// Per-event startlist.
	Startlist(ctx context.Context, eventID string) ([]timing.StartlistRow, error)
	SaveStartlist(ctx context.Context, eventID string, rows []timing.StartlistRow) error
	DeleteStartlist(ctx context.Context, eventID string) error

	// Process-wide settings; reads fall back to defaults.
	Settings(ctx context.Context) (timing.Settings, error)
	SaveSettings(ctx context.Context, settings timing.Settings) error

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
}

// Snapshot document keys shared by both backends.
func eventsKey() string                  { return "events" }
func timingPointsKey() string            { return "timingpoints" }
func entriesKey(tpID string) string      { return "entries_" + tpID }
func dnfDnsKey(tpID string) string       { return "dnfdns_" + tpID }
func startlistKey(eventID string) string { return "startlist_" + eventID }
func settingsKey() string                { return "settings" }
