// Package notify delivers email to residents.
package notify

import (
	"context"
	"errors"
	"net/mail"
)

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("message has no recipients")

// Message is a plain email. HTML is optional.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ParseAddress parses "Name <addr>" or a bare address. Blank input
// returns ok=false.
func ParseAddress(name, addr string) (mail.Address, bool) {
	if addr == "" {
		return mail.Address{}, false
	}
	a, err := mail.ParseAddress(addr)
	if err != nil {
		return mail.Address{}, false
	}
	if a.Name == "" {
		a.Name = name
	}
	return *a, true
}
