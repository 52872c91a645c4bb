// Package mailer delivers transactional email over SMTP. Delivery failures
// are reported to the caller for logging only; they never roll back the
// mutation that triggered the mail.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends HTML email through a configured SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New constructs a Mailer. Username and password may be empty for relays
// that accept unauthenticated mail (local Mailpit, for instance).
func New(host string, port int, username, password, from string) *Mailer {
	d := gomail.NewDialer(host, port, username, password)
	return &Mailer{dialer: d, from: from}
}

// Send delivers a single HTML message.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
