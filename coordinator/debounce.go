package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type burst[I, O any] struct {
	input  I
	future *Future[O]
	timer  *time.Timer
}

// Debouncer collapses a burst of calls into one invocation with the last
// input. Every caller of a burst shares the burst's future.
type Debouncer[I, O any] struct {
	ctx     context.Context
	fn      func(ctx context.Context, input I) (O, error)
	delay   time.Duration
	mu      sync.Mutex
	current *burst[I, O]
	stopped bool
}

func NewDebouncer[I, O any](ctx context.Context, delay time.Duration, fn func(ctx context.Context, input I) (O, error)) *Debouncer[I, O] {
	return &Debouncer[I, O]{
		ctx:   ctx,
		fn:    fn,
		delay: delay,
	}
}

// Call records input and restarts the delay. At most one timer is
// outstanding per debouncer.
func (d *Debouncer[I, O]) Call(input I) *Future[O] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		var zero O
		return Settled(zero, types.ErrDebouncerStopped)
	}

	if d.current == nil {
		b := &burst[I, O]{future: NewFuture[O]()}
		b.timer = time.AfterFunc(d.delay, func() {
			d.fire(b)
		})
		d.current = b
	} else {
		d.current.timer.Reset(d.delay)
	}

	d.current.input = input
	return d.current.future
}

func (d *Debouncer[I, O]) fire(b *burst[I, O]) {
	d.mu.Lock()
	if d.current != b {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.mu.Unlock()

	d.invoke(b)
}

// Flush fires the pending burst now, if any, and waits for it.
func (d *Debouncer[I, O]) Flush() {
	d.mu.Lock()
	b := d.current
	d.current = nil
	d.mu.Unlock()

	if b == nil {
		return
	}
	b.timer.Stop()
	d.invoke(b)
}

// Stop rejects the pending burst and every later call with ErrDebouncerStopped.
func (d *Debouncer[I, O]) Stop() {
	d.mu.Lock()
	b := d.current
	d.current = nil
	d.stopped = true
	d.mu.Unlock()

	if b == nil {
		return
	}
	b.timer.Stop()

	var zero O
	b.future.settle(zero, types.ErrDebouncerStopped)
}

func (d *Debouncer[I, O]) invoke(b *burst[I, O]) {
	value, err := func() (value O, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = types.Errorf(types.ErrPendingRequestPanic, "debounced call: %v", r)
			}
		}()
		return d.fn(d.ctx, b.input)
	}()
	b.future.settle(value, err)
}
