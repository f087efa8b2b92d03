package alerts

import (
	"context"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// Message is the rendered content handed to a channel sender.
type Message struct {
	Recipient string
	Subject   string
	Body      string
	Severity  domain.Severity
	Payload   map[string]any
}

// Sender delivers a message over a single channel type.
type Sender interface {
	Type() domain.NotificationChannel
	Send(ctx context.Context, msg Message) error
}

// Dispatcher routes messages to the sender registered for their channel.
type Dispatcher struct {
	senders map[domain.NotificationChannel]Sender
}

// NewDispatcher creates a dispatcher from the given senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	senderMap := make(map[domain.NotificationChannel]Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	return &Dispatcher{senders: senderMap}
}

// Send delivers the message over the given channel. Returns
// ErrUnknownChannel if no sender is registered for it.
func (d *Dispatcher) Send(ctx context.Context, channel domain.NotificationChannel, msg Message) error {
	sender, ok := d.senders[channel]
	if !ok {
		return ErrUnknownChannel
	}
	return sender.Send(ctx, msg)
}
