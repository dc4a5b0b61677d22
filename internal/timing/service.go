package timing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simhaf82/Handtiming/internal/realtime"
)

// Broadcaster is the fan-out surface the coordinator publishes to.
type Broadcaster interface {
	Publish(timingPointID string, event realtime.Event)
	BroadcastGlobal(event realtime.Event)
	DropTimingPoint(timingPointID string)
}

// Materializer keeps the persisted CSV projection of a log current.
type Materializer interface {
	Update(timingPointID string, entries []Entry) error
	Remove(timingPointID string) error
}

// EntryStore is the slice of the snapshot store the coordinator mutates.
type EntryStore interface {
	Entries(ctx context.Context, timingPointID string) ([]Entry, error)
	SaveEntries(ctx context.Context, timingPointID string, entries []Entry) error
	DeleteEntries(ctx context.Context, timingPointID string) error
	DnfDns(ctx context.Context, timingPointID string) ([]DnfDnsRecord, error)
	SaveDnfDns(ctx context.Context, timingPointID string, records []DnfDnsRecord) error
	DeleteDnfDns(ctx context.Context, timingPointID string) error
}

// Service is the mutation coordinator: every accepted mutation runs
// store update, CSV refresh and publish as one logical step, and the
// caller is not acknowledged before all three completed. Mutations on
// the same timing point are serialized; different points proceed
// independently.
type Service struct {
	store EntryStore
	csv   Materializer
	hub   Broadcaster

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the coordinator.
func NewService(store EntryStore, csv Materializer, hub Broadcaster) *Service {
	return &Service{store: store, csv: csv, hub: hub, locks: make(map[string]*sync.Mutex)}
}

// lock returns the serialization mutex for one timing point.
func (s *Service) lock(timingPointID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[timingPointID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[timingPointID] = l
	}
	return l
}

// Entries lists the live log in insertion order.
func (s *Service) Entries(ctx context.Context, timingPointID string) ([]Entry, error) {
	entries, err := s.store.Entries(ctx, timingPointID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// SubmitEntry appends a sighting to the log. Duplicate start numbers are
// accepted on purpose: two operators may both key in the same runner and
// the duplicate view sorts it out afterwards.
func (s *Service) SubmitEntry(ctx context.Context, timingPointID, startNumber string, timestamp time.Time) (Entry, error) {
	startNumber = strings.TrimSpace(startNumber)
	if startNumber == "" {
		return Entry{}, validationf("start number required")
	}
	if timestamp.IsZero() {
		return Entry{}, validationf("timestamp required")
	}

	l := s.lock(timingPointID)
	l.Lock()
	defer l.Unlock()

	entries, err := s.store.Entries(ctx, timingPointID)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:            uuid.NewString(),
		TimingPointID: timingPointID,
		StartNumber:   startNumber,
		Timestamp:     timestamp,
		CreatedAt:     time.Now().UTC(),
	}
	entries = append(entries, entry)
	if err := s.store.SaveEntries(ctx, timingPointID, entries); err != nil {
		return Entry{}, err
	}
	if err := s.csv.Update(timingPointID, entries); err != nil {
		return Entry{}, err
	}
	s.hub.Publish(timingPointID, realtime.Event{Type: realtime.EntryAdded, Data: entry})
	return entry, nil
}

// CorrectEntry changes the start number of an existing entry. Identifier,
// ownership and capture timestamp never change.
func (s *Service) CorrectEntry(ctx context.Context, timingPointID, entryID, startNumber string) (Entry, error) {
	startNumber = strings.TrimSpace(startNumber)
	if startNumber == "" {
		return Entry{}, validationf("start number required")
	}

	l := s.lock(timingPointID)
	l.Lock()
	defer l.Unlock()

	entries, err := s.store.Entries(ctx, timingPointID)
	if err != nil {
		return Entry{}, err
	}
	idx := -1
	for i := range entries {
		if entries[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Entry{}, notFoundf("entry %s", entryID)
	}
	entries[idx].StartNumber = startNumber
	if err := s.store.SaveEntries(ctx, timingPointID, entries); err != nil {
		return Entry{}, err
	}
	if err := s.csv.Update(timingPointID, entries); err != nil {
		return Entry{}, err
	}
	s.hub.Publish(timingPointID, realtime.Event{Type: realtime.EntryUpdated, Data: entries[idx]})
	return entries[idx], nil
}

// DeleteEntry removes an entry from the log.
func (s *Service) DeleteEntry(ctx context.Context, timingPointID, entryID string) error {
	l := s.lock(timingPointID)
	l.Lock()
	defer l.Unlock()

	entries, err := s.store.Entries(ctx, timingPointID)
	if err != nil {
		return err
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == entryID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return notFoundf("entry %s", entryID)
	}
	if err := s.store.SaveEntries(ctx, timingPointID, kept); err != nil {
		return err
	}
	if err := s.csv.Update(timingPointID, kept); err != nil {
		return err
	}
	s.hub.Publish(timingPointID, realtime.Event{Type: realtime.EntryDeleted, Data: entryID})
	return nil
}

// DnfDns lists the current record set for a timing point.
func (s *Service) DnfDns(ctx context.Context, timingPointID string) ([]DnfDnsRecord, error) {
	records, err := s.store.DnfDns(ctx, timingPointID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []DnfDnsRecord{}
	}
	return records, nil
}

// MarkDnfDns records a DNF or DNS for a start number, replacing any
// prior mark for the same number. Returns the full updated record set,
// which is also what gets broadcast: clients recompute the merged
// startlist view from it.
func (s *Service) MarkDnfDns(ctx context.Context, timingPointID, startNumber, statusType string) ([]DnfDnsRecord, error) {
	startNumber = strings.TrimSpace(startNumber)
	if startNumber == "" {
		return nil, validationf("start number required")
	}
	if statusType != StatusDNF && statusType != StatusDNS {
		return nil, validationf("type must be DNF or DNS")
	}

	l := s.lock(timingPointID)
	l.Lock()
	defer l.Unlock()

	records, err := s.store.DnfDns(ctx, timingPointID)
	if err != nil {
		return nil, err
	}
	kept := records[:0]
	for _, r := range records {
		if r.StartNumber != startNumber {
			kept = append(kept, r)
		}
	}
	kept = append(kept, DnfDnsRecord{
		StartNumber: startNumber,
		Type:        statusType,
		CreatedAt:   time.Now().UTC(),
	})
	if err := s.store.SaveDnfDns(ctx, timingPointID, kept); err != nil {
		return nil, err
	}
	s.hub.Publish(timingPointID, realtime.Event{Type: realtime.DnfDnsChanged, Data: kept})
	return kept, nil
}

// UnmarkDnfDns removes the record for a start number if present. Absent
// records are not an error; the broadcast still carries the current set.
func (s *Service) UnmarkDnfDns(ctx context.Context, timingPointID, startNumber string) ([]DnfDnsRecord, error) {
	l := s.lock(timingPointID)
	l.Lock()
	defer l.Unlock()

	records, err := s.store.DnfDns(ctx, timingPointID)
	if err != nil {
		return nil, err
	}
	kept := records[:0]
	for _, r := range records {
		if r.StartNumber != startNumber {
			kept = append(kept, r)
		}
	}
	if err := s.store.SaveDnfDns(ctx, timingPointID, kept); err != nil {
		return nil, err
	}
	s.hub.Publish(timingPointID, realtime.Event{Type: realtime.DnfDnsChanged, Data: kept})
	return kept, nil
}

// Teardown removes all engine state for deleted timing points: log,
// DNF/DNS records, CSV artifact and subscriber group. Called by the
// directory when a timing point or its event is deleted.
func (s *Service) Teardown(ctx context.Context, timingPointIDs ...string) error {
	for _, tpID := range timingPointIDs {
		l := s.lock(tpID)
		l.Lock()
		err := s.store.DeleteEntries(ctx, tpID)
		if err == nil {
			err = s.store.DeleteDnfDns(ctx, tpID)
		}
		if err == nil {
			err = s.csv.Remove(tpID)
		}
		s.hub.DropTimingPoint(tpID)
		l.Unlock()
		if err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.locks, tpID)
		s.mu.Unlock()
	}
	return nil
}
