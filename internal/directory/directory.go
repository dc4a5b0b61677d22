// Package directory manages the event and timing point catalogue. It is
// a collaborator of the timing engine: the engine only asks it whether a
// timing point exists and which event owns it, and the directory calls
// back into the engine when a deletion requires teardown.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

// TeardownFunc removes all engine state for the given timing points.
type TeardownFunc func(ctx context.Context, timingPointIDs ...string) error

// Service owns the events and timingpoints snapshots. A single mutex
// serializes catalogue mutations; the catalogue is tiny and rarely
// written compared to entry logs.
type Service struct {
	mu       sync.Mutex
	store    store.Store
	teardown TeardownFunc
}

// New wires the directory. teardown may be nil in tests.
func New(st store.Store, teardown TeardownFunc) *Service {
	return &Service{store: st, teardown: teardown}
}

// EventInput is the caller-supplied part of an event.
type EventInput struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
}

// TimingPointInput is the caller-supplied part of a timing point.
type TimingPointInput struct {
	Name      string   `json:"name"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{timing.ErrValidation}, args...)...)
}

// Events lists all events.
func (s *Service) Events(ctx context.Context) ([]timing.Event, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []timing.Event{}
	}
	return events, nil
}

// CreateEvent adds an event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (timing.Event, error) {
	if strings.TrimSpace(in.Name) == "" {
		return timing.Event{}, validationf("event name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.store.Events(ctx)
	if err != nil {
		return timing.Event{}, err
	}
	event := timing.Event{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Location:  in.Location,
		Date:      in.Date,
		StartTime: in.StartTime,
		CreatedAt: time.Now().UTC(),
	}
	events = append(events, event)
	if err := s.store.SaveEvents(ctx, events); err != nil {
		return timing.Event{}, err
	}
	return event, nil
}

// Event returns one event by id.
func (s *Service) Event(ctx context.Context, id string) (timing.Event, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return timing.Event{}, err
	}
	for _, e := range events {
		if e.ID == id {
			return e, nil
		}
	}
	return timing.Event{}, fmt.Errorf("%w: event %s", timing.ErrNotFound, id)
}

// UpdateEvent overwrites the mutable fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (timing.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.store.Events(ctx)
	if err != nil {
		return timing.Event{}, err
	}
	for i := range events {
		if events[i].ID != id {
			continue
		}
		if in.Name != "" {
			events[i].Name = in.Name
		}
		if in.Location != "" {
			events[i].Location = in.Location
		}
		if in.Date != "" {
			events[i].Date = in.Date
		}
		if in.StartTime != "" {
			events[i].StartTime = in.StartTime
		}
		if err := s.store.SaveEvents(ctx, events); err != nil {
			return timing.Event{}, err
		}
		return events[i], nil
	}
	return timing.Event{}, fmt.Errorf("%w: event %s", timing.ErrNotFound, id)
}

// DeleteEvent removes an event, its timing points, its startlist and all
// derived engine state.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.store.Events(ctx)
	if err != nil {
		return err
	}
	kept := events[:0]
	found := false
	for _, e := range events {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: event %s", timing.ErrNotFound, id)
	}
	if err := s.store.SaveEvents(ctx, kept); err != nil {
		return err
	}

	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return err
	}
	var doomed []string
	keptPoints := points[:0]
	for _, tp := range points {
		if tp.EventID == id {
			doomed = append(doomed, tp.ID)
			continue
		}
		keptPoints = append(keptPoints, tp)
	}
	if err := s.store.SaveTimingPoints(ctx, keptPoints); err != nil {
		return err
	}
	if err := s.store.DeleteStartlist(ctx, id); err != nil {
		return err
	}
	if s.teardown != nil && len(doomed) > 0 {
		return s.teardown(ctx, doomed...)
	}
	return nil
}

// TimingPoints lists an event's timing points ordered by position.
func (s *Service) TimingPoints(ctx context.Context, eventID string) ([]timing.TimingPoint, error) {
	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return nil, err
	}
	out := []timing.TimingPoint{}
	for _, tp := range points {
		if tp.EventID == eventID {
			out = append(out, tp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// CreateTimingPoint adds a timing point at the end of the event's order.
func (s *Service) CreateTimingPoint(ctx context.Context, eventID string, in TimingPointInput) (timing.TimingPoint, error) {
	if strings.TrimSpace(in.Name) == "" {
		return timing.TimingPoint{}, validationf("timing point name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Event(ctx, eventID); err != nil {
		return timing.TimingPoint{}, err
	}
	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return timing.TimingPoint{}, err
	}
	position := 0
	for _, tp := range points {
		if tp.EventID == eventID && tp.Position >= position {
			position = tp.Position + 1
		}
	}
	tp := timing.TimingPoint{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Name:      in.Name,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}
	points = append(points, tp)
	if err := s.store.SaveTimingPoints(ctx, points); err != nil {
		return timing.TimingPoint{}, err
	}
	return tp, nil
}

// TimingPoint returns one timing point by id.
func (s *Service) TimingPoint(ctx context.Context, id string) (timing.TimingPoint, error) {
	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return timing.TimingPoint{}, err
	}
	for _, tp := range points {
		if tp.ID == id {
			return tp, nil
		}
	}
	return timing.TimingPoint{}, fmt.Errorf("%w: timing point %s", timing.ErrNotFound, id)
}

// Exists reports whether a timing point id is known.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.TimingPoint(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OwnerEvent returns the event id owning a timing point.
func (s *Service) OwnerEvent(ctx context.Context, id string) (string, error) {
	tp, err := s.TimingPoint(ctx, id)
	if err != nil {
		return "", err
	}
	return tp.EventID, nil
}

// UpdateTimingPoint overwrites the mutable fields; id, owner and
// creation time stay fixed.
func (s *Service) UpdateTimingPoint(ctx context.Context, id string, in TimingPointInput) (timing.TimingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return timing.TimingPoint{}, err
	}
	for i := range points {
		if points[i].ID != id {
			continue
		}
		if in.Name != "" {
			points[i].Name = in.Name
		}
		points[i].FirstName = in.FirstName
		points[i].LastName = in.LastName
		if in.Latitude != nil {
			points[i].Latitude = in.Latitude
		}
		if in.Longitude != nil {
			points[i].Longitude = in.Longitude
		}
		if err := s.store.SaveTimingPoints(ctx, points); err != nil {
			return timing.TimingPoint{}, err
		}
		return points[i], nil
	}
	return timing.TimingPoint{}, fmt.Errorf("%w: timing point %s", timing.ErrNotFound, id)
}

// DeleteTimingPoint removes a timing point and tears down its log, CSV
// artifact and subscriber group.
func (s *Service) DeleteTimingPoint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return err
	}
	kept := points[:0]
	found := false
	for _, tp := range points {
		if tp.ID == id {
			found = true
			continue
		}
		kept = append(kept, tp)
	}
	if !found {
		return fmt.Errorf("%w: timing point %s", timing.ErrNotFound, id)
	}
	if err := s.store.SaveTimingPoints(ctx, kept); err != nil {
		return err
	}
	if s.teardown != nil {
		return s.teardown(ctx, id)
	}
	return nil
}

// Reorder applies an explicit ordering to an event's timing points. The
// id list must cover exactly the event's points.
func (s *Service) Reorder(ctx context.Context, eventID string, ids []string) ([]timing.TimingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, err := s.store.TimingPoints(ctx)
	if err != nil {
		return nil, err
	}
	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}
	count := 0
	for i := range points {
		if points[i].EventID != eventID {
			continue
		}
		pos, ok := order[points[i].ID]
		if !ok {
			return nil, validationf("reorder list missing timing point %s", points[i].ID)
		}
		points[i].Position = pos
		count++
	}
	if count != len(ids) {
		return nil, validationf("reorder list does not match event timing points")
	}
	if err := s.store.SaveTimingPoints(ctx, points); err != nil {
		return nil, err
	}
	return s.TimingPoints(ctx, eventID)
}

func isNotFound(err error) bool {
	return errors.Is(err, timing.ErrNotFound)
}
