package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox into the store and, when a producer is
// configured, onto Kafka. Sink failures are logged and skipped; the worker
// only stops on context cancellation.
type Worker struct {
	store    Store
	producer *Producer
	inbox    <-chan Event
	logger   *slog.Logger
}

func NewWorker(store Store, producer *Producer, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, producer: producer, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
	if w.producer == nil {
		return
	}
	if err := w.producer.Produce(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit produce failed",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}
