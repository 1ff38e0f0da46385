package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/tinyland-inc/partyline/pkg/chat"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// EventBus decouples the real-time transport from the chat store: inbound
// carries raw envelopes off the wire, outbound carries local send requests
// toward it.
type EventBus struct {
	inbound  chan chat.Envelope
	outbound chan SendRequest
	done     chan struct{}
	closed   atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		inbound:  make(chan chat.Envelope, 100),
		outbound: make(chan SendRequest, 100),
		done:     make(chan struct{}),
	}
}

func (eb *EventBus) PublishEvent(ctx context.Context, env chat.Envelope) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.inbound <- env:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) ConsumeEvent(ctx context.Context) (chat.Envelope, bool) {
	select {
	case env, ok := <-eb.inbound:
		return env, ok
	case <-eb.done:
		return chat.Envelope{}, false
	case <-ctx.Done():
		return chat.Envelope{}, false
	}
}

func (eb *EventBus) PublishSend(ctx context.Context, req SendRequest) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.outbound <- req:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (eb *EventBus) ConsumeSend(ctx context.Context) (SendRequest, bool) {
	select {
	case req, ok := <-eb.outbound:
		return req, ok
	case <-eb.done:
		return SendRequest{}, false
	case <-ctx.Done():
		return SendRequest{}, false
	}
}

func (eb *EventBus) Close() {
	if eb.closed.CompareAndSwap(false, true) {
		close(eb.done)
	}
}
