package email

import (
	"context"

	"gopkg.in/mail.v2"
)

// SMTPClient sends email through an SMTP server.
type SMTPClient struct {
	smtpHost string
	smtpPort int
	username string
	password string
}

// NewSMTPClient creates a new SMTP client.
func NewSMTPClient(smtpHost string, smtpPort int, username, password string) *SMTPClient {
	return &SMTPClient{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
	}
}

// Send delivers msg in one SMTP transaction. Several recipients are put in
// Bcc so they do not see each other. SMTP has no message id, so it returns "".
func (c *SMTPClient) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)

	return "", dialer.DialAndSend(buildMessage(msg))
}

func buildMessage(msg Message) *mail.Message {
	message := mail.NewMessage()

	message.SetHeader("From", msg.From)
	if len(msg.To) == 1 {
		message.SetHeader("To", msg.To[0])
	} else {
		message.SetHeader("To", msg.From)
		message.SetHeader("Bcc", msg.To...)
	}
	message.SetHeader("Subject", msg.Subject)

	message.SetBody("text/html", msg.HTML)

	return message
}
