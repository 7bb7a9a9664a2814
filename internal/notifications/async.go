package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/literature-backend/pkg/logger"
)

const defaultAsyncTimeout = 10 * time.Second

// AsyncDispatcher hands events to another Dispatcher on a goroutine so the
// request that triggered them does not wait. The goroutine keeps the caller's
// context values but not its cancellation, bounded by timeout.
type AsyncDispatcher struct {
	next    Dispatcher
	logg    *logger.Logger
	timeout time.Duration
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
}

func NewAsyncDispatcher(next Dispatcher, logg *logger.Logger, timeout time.Duration) (*AsyncDispatcher, error) {
	if next == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = defaultAsyncTimeout
	}
	return &AsyncDispatcher{next: next, logg: logg, timeout: timeout}, nil
}

// Dispatch returns immediately. After Drain has started events run inline.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, event Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.run(detached, event)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		d.run(detached, event)
	}()
}

func (d *AsyncDispatcher) run(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			d.logg.Error(d.logg.WithField(ctx, "type", string(event.Type)), "notifications.dispatch.failed", fmt.Errorf("panic: %v", rec))
		}
	}()
	d.next.Dispatch(ctx, event)
}

// Drain stops accepting background work and waits for in-flight dispatches or
// for ctx to end.
func (d *AsyncDispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
