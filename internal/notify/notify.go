// Package notify dispatches customer notifications. The engine triggers and
// records them; delivery guarantees and retries belong to the provider.
package notify

import "context"

// Result carries the outcome back as data. A failed send never invalidates
// the state change that triggered it.
type Result struct {
	Sent       bool
	ProviderID string
	Err        error
}

type Sender interface {
	Send(ctx context.Context, recipient, message string) Result
	ProviderID() string
}

// Dispatcher routes a message by recipient form: anything with an @ goes to
// the email sender, everything else to SMS.
type Dispatcher struct {
	sms   Sender
	email Sender
}

func NewDispatcher(sms, email Sender) *Dispatcher {
	if sms == nil {
		sms = NewNoopSender("sms-noop")
	}
	if email == nil {
		email = NewNoopSender("email-noop")
	}
	return &Dispatcher{sms: sms, email: email}
}

func (d *Dispatcher) Send(ctx context.Context, recipient, message string) Result {
	if recipient == "" {
		return Result{}
	}
	return d.senderFor(recipient).Send(ctx, recipient, message)
}

func (d *Dispatcher) Channel(recipient string) string {
	if isEmail(recipient) {
		return "email"
	}
	return "sms"
}

func (d *Dispatcher) senderFor(recipient string) Sender {
	if isEmail(recipient) {
		return d.email
	}
	return d.sms
}

func isEmail(recipient string) bool {
	for i := 0; i < len(recipient); i++ {
		if recipient[i] == '@' {
			return true
		}
	}
	return false
}

type NoopSender struct {
	id string
}

func NewNoopSender(id string) *NoopSender {
	return &NoopSender{id: id}
}

func (s *NoopSender) ProviderID() string { return s.id }

func (s *NoopSender) Send(_ context.Context, _ string, _ string) Result {
	return Result{Sent: true, ProviderID: s.id}
}
