package message

import (
	"context"

	"github.com/docker/go-events"
)

// Mailbox is one actor's inbox: a single-recipient, FIFO channel of
// Message. Sends never block the sender past the channel's buffer; a full
// mailbox provides natural backpressure.
type Mailbox chan Message

// NewMailbox returns a Mailbox with the given buffer size.
func NewMailbox(buffer int) Mailbox {
	return make(Mailbox, buffer)
}

// Send enqueues msg, respecting ctx cancellation so a shutting-down sender
// never blocks forever on a stalled recipient.
func (m Mailbox) Send(ctx context.Context, msg Message) error {
	select {
	case m <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sink adapts a Mailbox to a go-events Sink so it can be registered with a
// Broadcaster.
type sink struct {
	to Mailbox
}

func (s sink) Write(ev events.Event) error {
	s.to <- ev.(Message)
	return nil
}

func (s sink) Close() error { return nil }

// Fanout multiplexes one reactive's Propagate to every importing service's
// Mailbox. It wraps github.com/docker/go-events's Broadcaster: each
// importer is registered once as a Sink, and a single Write fans the
// message out to all of them without the sender needing to track the
// importer list itself.
type Fanout struct {
	broadcaster *events.Broadcaster
}

// NewFanout returns an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{broadcaster: events.NewBroadcaster()}
}

// Subscribe registers to's Mailbox as a recipient of future Propagate
// messages sent through this Fanout.
func (f *Fanout) Subscribe(to Mailbox) {
	f.broadcaster.Add(sink{to: to})
}

// Unsubscribe removes to's Mailbox from the recipient set.
func (f *Fanout) Unsubscribe(to Mailbox) error {
	return f.broadcaster.Remove(sink{to: to})
}

// Send delivers msg to every currently-subscribed Mailbox.
func (f *Fanout) Send(msg Message) error {
	return f.broadcaster.Write(msg)
}

// Close stops the Fanout's broadcaster goroutine.
func (f *Fanout) Close() error {
	return f.broadcaster.Close()
}
