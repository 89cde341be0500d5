package notification

import (
	"context"
	"net/mail"
)

// Email is one rendered message addressed to a single recipient.
type Email struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	HTML        string
	Text        string
}

// From returns the RFC 5322 sender, quoting the display name as needed.
func (e Email) From() string {
	return (&mail.Address{Name: e.FromName, Address: e.FromAddress}).String()
}

// Mailer delivers rendered email through one provider.
type Mailer interface {
	Name() string
	Send(ctx context.Context, e Email) (messageID string, err error)
	Verify(ctx context.Context) error
}

// SMSSender delivers short text messages.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (messageID string, err error)
}
