package message

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/meerkat/pkg/basis"
)

func TestMailboxSendReceive(t *testing.T) {
	mb := NewMailbox(1)
	msg := PrepareCommit{}
	if err := mb.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case got := <-mb:
		if _, ok := got.(PrepareCommit); !ok {
			t.Fatalf("got %T, want PrepareCommit", got)
		}
	default:
		t.Fatal("mailbox should have delivered the message")
	}
}

func TestMailboxSendRespectsContextCancellation(t *testing.T) {
	mb := NewMailbox(0) // unbuffered: Send blocks without a reader
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mb.Send(ctx, PrepareCommit{}); err == nil {
		t.Fatal("Send() should fail once ctx is cancelled")
	}
}

func TestFanoutDeliversToEverySubscriber(t *testing.T) {
	f := NewFanout()
	defer f.Close()

	a := NewMailbox(1)
	b := NewMailbox(1)
	f.Subscribe(a)
	f.Subscribe(b)

	ref := basis.ReactiveRef{Service: "main", Name: "z"}
	msg := Propagate{Sender: ref}
	if err := f.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for _, mb := range []Mailbox{a, b} {
		select {
		case got := <-mb:
			p, ok := got.(Propagate)
			if !ok || p.Sender != ref {
				t.Fatalf("got %+v, want Propagate{Sender: %v}", got, ref)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestFanoutUnsubscribeStopsDelivery(t *testing.T) {
	f := NewFanout()
	defer f.Close()

	a := NewMailbox(1)
	f.Subscribe(a)
	if err := f.Unsubscribe(a); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := f.Send(Propagate{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case got := <-a:
		t.Fatalf("unsubscribed mailbox received %+v, want nothing", got)
	case <-time.After(50 * time.Millisecond):
	}
}
