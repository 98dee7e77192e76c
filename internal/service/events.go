package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tradeloom/tradeloom/internal/port/messagequeue"
	"github.com/tradeloom/tradeloom/internal/resilience"
)

// Events publishes domain events. Delivery is best effort: failures are
// logged and never returned to the caller. A nil *Events publishes nothing.
type Events struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
}

// NewEvents creates an event publisher. breaker may be nil.
func NewEvents(queue messagequeue.Queue, breaker *resilience.Breaker) *Events {
	if queue == nil {
		return nil
	}
	return &Events{queue: queue, breaker: breaker}
}

// Publish encodes payload and publishes it on subject.
func (e *Events) Publish(ctx context.Context, subject string, payload any) {
	if e == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "encode event", "subject", subject, "error", err)
		return
	}

	publish := func(ctx context.Context) error { return e.queue.Publish(ctx, subject, data) }
	if e.breaker != nil {
		err = e.breaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}
