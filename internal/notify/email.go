package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender sends email via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr    string
	from    string
	subject string
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@detailbook.local"
	}
	return &SMTPSender{
		addr:    fmt.Sprintf("%s:%s", host, port),
		from:    from,
		subject: "Appointment update",
	}
}

func (s *SMTPSender) ProviderID() string {
	return "email-smtp"
}

func (s *SMTPSender) Send(_ context.Context, to string, body string) Result {
	msg := buildMessage(s.from, to, s.subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return Result{Err: err}
	}
	return Result{Sent: true, ProviderID: s.ProviderID()}
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}
