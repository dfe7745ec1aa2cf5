// Package email provides clients for delivering HTML email through the
// Resend HTTP API or a plain SMTP server.
package email

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Disabled when no email provider is configured.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is a single send request. To may hold one or many addresses.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Disabled is a sender used when neither Resend nor SMTP is configured.
type Disabled struct{}

// Send always fails with ErrNotConfigured.
func (Disabled) Send(context.Context, Message) (string, error) {
	return "", ErrNotConfigured
}
