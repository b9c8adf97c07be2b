package common

// EmailSender delivers a single HTML message.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is one message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail collects messages instead of delivering them. Tests inspect
// the Outbox; a nil receiver drops messages silently.
type InMemoryEmail struct {
	Outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender discards every message.
type NopEmailSender struct{}

func (NopEmailSender) Send(string, string, string) error { return nil }
