package notify

import (
	"context"
	"peek/backend/internal/logging"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher triggers a fan-out without waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Action) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, a Action) error

func (f DispatcherFunc) Dispatch(ctx context.Context, a Action) error { return f(ctx, a) }

// Discard drops every action.
var Discard Dispatcher = DispatcherFunc(func(context.Context, Action) error { return nil })

// InlineDispatcher runs each fan-out in its own goroutine, detached from the caller's
// cancellation and bounded by timeout.
type InlineDispatcher struct {
	notifier *Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewInlineDispatcher(notifier *Notifier, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineDispatcher{notifier: notifier, timeout: timeout}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if _, err := d.notifier.Fanout(ctx, a); err != nil {
			logging.Error("Failed to fan out action",
				zap.String("action", string(a.ActionType)),
				zap.Uint("actor_id", a.Actor.ID),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched fan-out has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
