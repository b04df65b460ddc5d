package domain

import "context"

// Message is a plain-text notice addressed to one or more recipients.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Dispatcher delivers notices. Enqueue is asynchronous with at-least-once
// delivery; SendNow delivers before returning.
type Dispatcher interface {
	Enqueue(ctx context.Context, eventID string, msg *Message) error
	SendNow(ctx context.Context, msg *Message) error
}
