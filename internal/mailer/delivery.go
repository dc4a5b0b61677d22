package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

// SendFunc submits one composed message; swapped out in tests.
type SendFunc func(ctx context.Context, settings timing.Settings, msg Message) error

// Deliverer turns queued jobs into outbound mails with the current CSV
// artifacts attached.
type Deliverer struct {
	store store.Store
	csv   *csvexport.Materializer
	send  SendFunc
}

// NewDeliverer wires a deliverer; send defaults to Send.
func NewDeliverer(st store.Store, csv *csvexport.Materializer, send SendFunc) *Deliverer {
	if send == nil {
		send = Send
	}
	return &Deliverer{store: st, csv: csv, send: send}
}

// Process composes and sends the mail for one job.
func (d *Deliverer) Process(ctx context.Context, job Job) error {
	settings, err := d.store.Settings(ctx)
	if err != nil {
		return err
	}
	if job.TimingPointID != "" {
		return d.deliverTimingPoint(ctx, settings, job)
	}
	if job.EventID != "" {
		return d.deliverEvent(ctx, settings, job)
	}
	return fmt.Errorf("%w: job names neither timing point nor event", timing.ErrValidation)
}

func (d *Deliverer) lookupTimingPoint(ctx context.Context, id string) (timing.TimingPoint, error) {
	points, err := d.store.TimingPoints(ctx)
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

func (d *Deliverer) lookupEvent(ctx context.Context, id string) (timing.Event, error) {
	events, err := d.store.Events(ctx)
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

func (d *Deliverer) deliverTimingPoint(ctx context.Context, settings timing.Settings, job Job) error {
	tp, err := d.lookupTimingPoint(ctx, job.TimingPointID)
	if err != nil {
		return err
	}
	event, err := d.lookupEvent(ctx, tp.EventID)
	if err != nil {
		return err
	}
	entries, err := d.store.Entries(ctx, tp.ID)
	if err != nil {
		return err
	}
	msg := Message{
		To:      job.Recipient,
		Subject: fmt.Sprintf("%s - %s - %s", event.Name, event.Date, tp.Name),
		Body: fmt.Sprintf(
			"Zeitmessergebnisse\n\nVeranstaltung: %s\nOrt: %s\nDatum: %s\nZeitmesspunkt: %s\nAnzahl Einträge: %d\n\nIm Anhang finden Sie die CSV-Datei mit allen erfassten Zeiten.",
			event.Name, event.Location, event.Date, tp.Name, len(entries)),
		Attachments: []Attachment{{
			Filename: csvexport.SanitizeFilename(tp.Name) + ".csv",
			Path:     d.csv.Path(tp.ID),
		}},
	}
	return d.send(ctx, settings, msg)
}

func (d *Deliverer) deliverEvent(ctx context.Context, settings timing.Settings, job Job) error {
	event, err := d.lookupEvent(ctx, job.EventID)
	if err != nil {
		return err
	}
	points, err := d.store.TimingPoints(ctx)
	if err != nil {
		return err
	}

	var attachments []Attachment
	var names []string
	total := 0
	for _, tp := range points {
		if tp.EventID != event.ID || !d.csv.Exists(tp.ID) {
			continue
		}
		entries, err := d.store.Entries(ctx, tp.ID)
		if err != nil {
			return err
		}
		total += len(entries)
		names = append(names, tp.Name)
		attachments = append(attachments, Attachment{
			Filename: csvexport.SanitizeFilename(tp.Name) + ".csv",
			Path:     d.csv.Path(tp.ID),
		})
	}
	if len(attachments) == 0 {
		return fmt.Errorf("%w: no csv artifacts for event %s", timing.ErrNotFound, event.ID)
	}

	msg := Message{
		To:      job.Recipient,
		Subject: fmt.Sprintf("%s - %s - Alle Zeitmesspunkte", event.Name, event.Date),
		Body: fmt.Sprintf(
			"Zeitmessergebnisse - Komplette Veranstaltung\n\nVeranstaltung: %s\nOrt: %s\nDatum: %s\nZeitmesspunkte: %s\nGesamtanzahl Einträge: %d\n\nIm Anhang finden Sie je eine CSV-Datei pro Zeitmesspunkt.",
			event.Name, event.Location, event.Date, strings.Join(names, ", "), total),
		Attachments: attachments,
	}
	return d.send(ctx, settings, msg)
}
