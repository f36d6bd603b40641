package alerts

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Dialer is the subset of *gomail.Dialer the e-mail sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends alerts to a fixed operator mailbox over SMTP.
type Email struct {
	dialer  Dialer
	from    string
	to      string
	subject string
}

// NewEmail builds an SMTP sender. A nil dialer or empty recipient disables it.
func NewEmail(dialer Dialer, from, to string) *Email {
	return &Email{dialer: dialer, from: from, to: to, subject: "Обновление по заявке"}
}

// NewSMTPDialer returns a gomail dialer, or nil when host is empty.
func NewSMTPDialer(host string, port int, user, password string) Dialer {
	if host == "" {
		return nil
	}
	return gomail.NewDialer(host, port, user, password)
}

func (e *Email) Send(ctx context.Context, text string) (bool, error) {
	if e.dialer == nil || e.to == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", e.subject)
	m.SetBody("text/plain", text)

	if err := e.dialer.DialAndSend(m); err != nil {
		return false, fmt.Errorf("smtp send: %w", err)
	}
	return true, nil
}
