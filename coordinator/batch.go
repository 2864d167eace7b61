package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const (
	DefaultBatchWindow  = 10 * time.Millisecond
	DefaultMaxBatchSize = 100
)

// BatchFunc maps inputs to outputs by index.
type BatchFunc[I, O any] func(ctx context.Context, inputs []I) ([]O, error)

type batchItem[I, O any] struct {
	input  I
	future *Future[O]
}

// Batcher queues inputs and hands them to one BatchFunc call when the
// window since the first queued input elapses or the queue is full.
type Batcher[I, O any] struct {
	ctx     context.Context
	fn      BatchFunc[I, O]
	window  time.Duration
	maxSize int
	mu      sync.Mutex
	queue   []batchItem[I, O]
	timer   *time.Timer
	gen     uint64
	closed  bool
	wg      sync.WaitGroup
}

func NewBatcher[I, O any](ctx context.Context, window time.Duration, maxSize int, fn BatchFunc[I, O]) *Batcher[I, O] {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}

	return &Batcher[I, O]{
		ctx:     ctx,
		fn:      fn,
		window:  window,
		maxSize: maxSize,
	}
}

func (b *Batcher[I, O]) Add(input I) *Future[O] {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		var zero O
		return Settled(zero, types.ErrBatcherClosed)
	}

	future := NewFuture[O]()
	b.queue = append(b.queue, batchItem[I, O]{input: input, future: future})

	if len(b.queue) >= b.maxSize {
		items := b.take()
		b.wg.Add(1)
		b.mu.Unlock()

		go func() {
			defer b.wg.Done()
			b.dispatch(items)
		}()
		return future
	}

	if len(b.queue) == 1 {
		gen := b.gen
		b.timer = time.AfterFunc(b.window, func() {
			b.expire(gen)
		})
	}

	b.mu.Unlock()
	return future
}

func (b *Batcher[I, O]) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	items := b.take()
	b.wg.Add(1)
	b.mu.Unlock()

	defer b.wg.Done()
	b.dispatch(items)
}

// take empties the queue. Callers hold mu.
func (b *Batcher[I, O]) take() []batchItem[I, O] {
	items := b.queue
	b.queue = nil
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return items
}

// Flush dispatches whatever is queued and waits for that batch.
func (b *Batcher[I, O]) Flush() {
	b.mu.Lock()
	items := b.take()
	b.mu.Unlock()

	b.dispatch(items)
}

// Close flushes the queue, rejects later adds with ErrBatcherClosed and
// waits for batches already dispatched.
func (b *Batcher[I, O]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	items := b.take()
	b.mu.Unlock()

	b.dispatch(items)
	b.wg.Wait()
}

func (b *Batcher[I, O]) dispatch(items []batchItem[I, O]) {
	if len(items) == 0 {
		return
	}

	inputs := make([]I, len(items))
	for i, item := range items {
		inputs[i] = item.input
	}

	outputs, err := b.call(inputs)

	var zero O
	for i, item := range items {
		switch {
		case err != nil:
			item.future.settle(zero, err)
		case i < len(outputs):
			item.future.settle(outputs[i], nil)
		default:
			item.future.settle(zero, types.Errorf(types.ErrMissingResult, "index %d of %d", i, len(items)))
		}
	}
}

func (b *Batcher[I, O]) call(inputs []I) (outputs []O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.Errorf(types.ErrPendingRequestPanic, "batch call: %v", r)
		}
	}()
	return b.fn(b.ctx, inputs)
}
