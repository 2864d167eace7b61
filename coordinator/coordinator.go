// Package coordinator deduplicates concurrent work by key and provides
// debounce and batch primitives built on the same Future type.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/metrics"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const (
	DefaultDebounceInterval = 100 * time.Millisecond
	DefaultMaxPendingAge    = 5 * time.Minute
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Func is the work a key coordinates. ctx is the coordinator's own context,
// not any caller's.
type Func func(ctx context.Context) (interface{}, error)

type pendingRequest struct {
	id          string
	future      *Future[any]
	createdAt   time.Time
	subscribers int
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithMetrics(manager types.MetricsManager) Option {
	return func(c *Coordinator) {
		if manager != nil {
			c.metrics = manager
		}
	}
}

type Coordinator struct {
	ctx              context.Context
	cancel           context.CancelFunc
	logger           types.Logger
	metrics          types.MetricsManager
	debounceInterval time.Duration
	maxPendingAge    time.Duration
	now              func() time.Time
	mu               sync.Mutex
	pending          map[string]*pendingRequest
	inflight         sync.WaitGroup
	sweeper          sync.WaitGroup
	stop             chan struct{}
	state            atomic.Value
	shutdownTimeout  time.Duration
}

func New(ctx context.Context, config *types.CoordinatorConfig, logger types.Logger, opts ...Option) *Coordinator {
	coordinatorCtx, cancel := context.WithCancel(ctx)

	c := &Coordinator{
		ctx:              coordinatorCtx,
		cancel:           cancel,
		logger:           logger,
		metrics:          metrics.Nop(),
		debounceInterval: DefaultDebounceInterval,
		maxPendingAge:    DefaultMaxPendingAge,
		now:              time.Now,
		pending:          make(map[string]*pendingRequest),
		shutdownTimeout:  10 * time.Second,
	}

	if config != nil {
		if config.DebounceInterval > 0 {
			c.debounceInterval = config.DebounceInterval
		}
		if config.MaxPendingAge > 0 {
			c.maxPendingAge = config.MaxPendingAge
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	c.state.Store(StateStopped)
	return c
}

// Execute joins the live pending request for key or starts fn for it.
// Every caller joined to one request gets the same future.
func (c *Coordinator) Execute(key string, fn Func) *Future[any] {
	c.mu.Lock()

	now := c.now()
	if p, ok := c.pending[key]; ok {
		if now.Sub(p.createdAt) < c.maxPendingAge {
			p.subscribers++
			c.mu.Unlock()
			c.metrics.Counter("coordinator_requests_total", map[string]string{"result": "joined"}).Inc()
			return p.future
		}
		delete(c.pending, key)
		c.metrics.Counter("coordinator_stale_removed_total", map[string]string{"reason": "execute"}).Inc()
	}

	p := &pendingRequest{
		id:          uuid.NewString(),
		future:      NewFuture[any](),
		createdAt:   now,
		subscribers: 1,
	}
	c.pending[key] = p
	size := len(c.pending)
	c.mu.Unlock()

	c.metrics.Counter("coordinator_requests_total", map[string]string{"result": "started"}).Inc()
	c.metrics.Gauge("coordinator_pending", nil).Set(float64(size))

	c.inflight.Add(1)
	go c.run(key, p, fn)

	return p.future
}

func (c *Coordinator) run(key string, p *pendingRequest, fn Func) {
	defer c.inflight.Done()

	start := time.Now()
	value, err := invoke(c.ctx, fn)
	p.future.settle(value, err)

	result := "success"
	if err != nil {
		result = "error"
		c.logger.Debug("Coordinated request failed",
			zap.String("key", key),
			zap.String("request_id", p.id),
			zap.Error(err))
	}
	c.metrics.Histogram("coordinator_request_duration_seconds",
		[]float64{0.01, 0.1, 1, 10, 60},
		map[string]string{"result": result},
	).Observe(time.Since(start).Seconds())

	if c.debounceInterval <= 0 {
		c.release(key, p)
		return
	}
	time.AfterFunc(c.debounceInterval, func() {
		c.release(key, p)
	})
}

func invoke(ctx context.Context, fn Func) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.Errorf(types.ErrPendingRequestPanic, "%v", r)
		}
	}()
	return fn(ctx)
}

// release drops key only while it still maps to p; a newer request for
// the same key is left alone.
func (c *Coordinator) release(key string, p *pendingRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending[key] == p {
		delete(c.pending, key)
		c.metrics.Gauge("coordinator_pending", nil).Set(float64(len(c.pending)))
	}
}

func (c *Coordinator) IsPending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[key]
	return ok && c.now().Sub(p.createdAt) < c.maxPendingAge
}

// Subscribers reports how many Execute calls joined the live request for key.
func (c *Coordinator) Subscribers(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[key]; ok {
		return p.subscribers
	}
	return 0
}

func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Sweep removes entries older than the max pending age. Their work keeps
// running and still settles the futures already handed out.
func (c *Coordinator) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, p := range c.pending {
		if now.Sub(p.createdAt) >= c.maxPendingAge {
			delete(c.pending, key)
			removed++
		}
	}

	if removed > 0 {
		c.metrics.Counter("coordinator_stale_removed_total", map[string]string{"reason": "sweep"}).Add(float64(removed))
		c.metrics.Gauge("coordinator_pending", nil).Set(float64(len(c.pending)))
		c.logger.Debug("Stale pending requests removed", zap.Int("removed", removed))
	}
	return removed
}

func (c *Coordinator) Start() error {
	if !c.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	c.stop = make(chan struct{})
	c.sweeper.Add(1)
	go c.sweepLoop(c.stop)

	c.setState(StateRunning)
	c.logger.Info("Request coordinator started",
		zap.Duration("debounce_interval", c.debounceInterval),
		zap.Duration("max_pending_age", c.maxPendingAge))
	return nil
}

func (c *Coordinator) sweepLoop(stop <-chan struct{}) {
	defer c.sweeper.Done()

	interval := c.maxPendingAge / 2
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Stop ends the sweep loop, cancels the coordinator context and waits for
// in-flight work up to the shutdown timeout.
func (c *Coordinator) Stop() error {
	if !c.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer c.setState(StateStopped)

	close(c.stop)
	c.sweeper.Wait()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Request coordinator stopped")
		return nil
	case <-time.After(c.shutdownTimeout):
		return fmt.Errorf("%w: %d pending requests did not finish", types.ErrServerStopFailed, c.Pending())
	}
}

func (c *Coordinator) IsRunning() bool {
	return c.getState() == StateRunning
}

func (c *Coordinator) getState() State {
	return c.state.Load().(State)
}

func (c *Coordinator) setState(newState State) {
	c.state.Store(newState)
}

func (c *Coordinator) transitionState(from, to State) bool {
	return c.state.CompareAndSwap(from, to)
}

// Do is Execute for a typed result, awaited with the caller's ctx.
func Do[T any](ctx context.Context, c *Coordinator, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	future := c.Execute(key, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})

	value, err := future.Await(ctx)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, types.Errorf(types.ErrUnexpectedResult, "key %s: got %T", key, value)
	}
	return typed, nil
}
