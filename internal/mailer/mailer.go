// Package mailer sends result CSVs by email using the SMTP account from
// the runtime settings. Delivery happens in the worker, off the request
// path.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/simhaf82/Handtiming/internal/timing"
)

// Job is what the API enqueues for the worker: which artifact set to
// mail and to whom. Exactly one of TimingPointID and EventID is set.
type Job struct {
	TimingPointID string `json:"timingPointId,omitempty"`
	EventID       string `json:"eventId,omitempty"`
	Recipient     string `json:"recipient"`
}

// DecodeJob parses a queued job payload.
func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, err
	}
	if job.Recipient == "" {
		return Job{}, fmt.Errorf("%w: recipient required", timing.ErrValidation)
	}
	return job, nil
}

// Attachment is one CSV artifact to attach by path.
type Attachment struct {
	Filename string
	Path     string
}

// Message is a fully composed outbound mail.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Send submits the message via the SMTP account in settings.
func Send(ctx context.Context, settings timing.Settings, msg Message) error {
	if !settings.EmailConfigured() {
		return fmt.Errorf("%w: email settings not configured", timing.ErrValidation)
	}

	m := mail.NewMsg()
	from := settings.EmailFrom
	if from == "" {
		from = settings.EmailUser
	}
	if err := m.From(from); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		m.AttachFile(a.Path, mail.WithFileName(a.Filename))
	}

	port := settings.EmailPort
	if port == 0 {
		port = 587
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(settings.EmailUser),
		mail.WithPassword(settings.EmailPass),
	}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	client, err := mail.NewClient(settings.EmailSMTP, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
