package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ratneshs230/Digital-Courtroom-sub001/metrics"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type ManagerState int32

const (
	ManagerStateStopped ManagerState = iota
	ManagerStateStarting
	ManagerStateRunning
	ManagerStateStopping
)

type Option func(*Facade)

// WithLegacySource enables one-time migration from a flat store written by
// earlier releases.
func WithLegacySource(store types.FlatStore, config *types.LegacyConfig) Option {
	return func(f *Facade) {
		f.legacy = store
		f.legacyConfig = config
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Facade) {
		f.now = now
	}
}

func WithMetrics(manager types.MetricsManager) Option {
	return func(f *Facade) {
		if manager != nil {
			f.metrics = manager
		}
	}
}

// Facade presents one logical store over a primary and a fallback backend.
// Backend selection follows nextState; once in fallback it never returns to
// the primary for the lifetime of the facade.
type Facade struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       types.Logger
	metrics      types.MetricsManager
	primary      types.Backend
	fallback     types.Backend
	legacy       types.FlatStore
	legacyConfig *types.LegacyConfig
	opTimeout    time.Duration
	now          func() time.Time

	storageState   atomic.Int32
	fallbackOpened bool
	transitionMu   sync.Mutex
	initGroup      singleflight.Group

	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewFacade(ctx context.Context, primary, fallback types.Backend, logger types.Logger, opTimeout time.Duration, opts ...Option) *Facade {
	facadeCtx, cancel := context.WithCancel(ctx)

	f := &Facade{
		ctx:             facadeCtx,
		cancel:          cancel,
		logger:          logger,
		metrics:         metrics.Nop(),
		primary:         primary,
		fallback:        fallback,
		opTimeout:       opTimeout,
		now:             time.Now,
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.storageState.Store(int32(types.StateUninitialized))
	f.state.Store(ManagerStateStopped)
	return f
}

// NewManager builds the facade and both backends from the storage section.
func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metricsManager types.MetricsManager) (*Facade, error) {
	storageConfig := config.GetConfig().Storage
	if storageConfig == nil {
		return nil, types.ErrConfigIsNil
	}

	primary := NewSQLiteBackend(storageConfig.Primary, storageConfig.Collections, logger)

	flatStore, err := NewFlatStore(ctx, storageConfig.Fallback, logger)
	if err != nil {
		return nil, types.WrapError(err, "failed to create fallback store")
	}
	fallback := NewFlatBackend(flatStore, storageConfig.Collections, storageConfig.Fallback.CompressThreshold, logger)

	opts := []Option{WithMetrics(metricsManager)}

	if legacy := storageConfig.Legacy; legacy != nil && legacy.Enabled {
		source, err := NewFlatStore(ctx, legacy.Source, logger)
		if err != nil {
			return nil, types.WrapError(err, "failed to create legacy store")
		}
		opts = append(opts, WithLegacySource(source, legacy))
	}

	return NewFacade(ctx, primary, fallback, logger, storageConfig.OperationTimeout, opts...), nil
}

func (f *Facade) State() types.StorageState {
	return types.StorageState(f.storageState.Load())
}

// Initialize selects the active backend and runs the legacy migration.
// Concurrent callers share one attempt, which runs on the facade's own
// context: ctx only bounds how long this caller waits for it.
func (f *Facade) Initialize(ctx context.Context) error {
	if f.State() != types.StateUninitialized {
		return nil
	}

	result := f.initGroup.DoChan("initialize", func() (interface{}, error) {
		if f.State() != types.StateUninitialized {
			return nil, nil
		}
		return nil, f.initialize(f.ctx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-result:
		return res.Err
	}
}

func (f *Facade) initialize(ctx context.Context) error {
	primaryErr := f.primary.Open(ctx)
	if isCancellation(primaryErr) {
		return primaryErr
	}

	if primaryErr == nil {
		f.apply(EventPrimaryOpened)
		f.logger.Info("Storage initialized", zap.String("backend", f.primary.Name()))
	} else {
		f.logger.Warn("Primary backend unavailable, opening fallback",
			zap.String("backend", f.primary.Name()),
			zap.Error(primaryErr))

		if err := f.openFallback(ctx); err != nil {
			return fmt.Errorf("%w: primary: %w; fallback: %w", types.ErrStorageUnavailable, primaryErr, err)
		}
		f.apply(EventPrimaryUnavailable)
		f.logger.Info("Storage initialized", zap.String("backend", f.fallback.Name()))
	}

	if f.legacy != nil {
		if err := f.MigrateLegacy(ctx); err != nil {
			f.logger.Error("Legacy migration failed, will retry on next start", zap.Error(err))
		}
	}

	return nil
}

func isCancellation(err error) bool {
	return types.IsError(err, context.Canceled) || types.IsError(err, context.DeadlineExceeded)
}

func (f *Facade) openFallback(ctx context.Context) error {
	f.transitionMu.Lock()
	defer f.transitionMu.Unlock()

	if f.fallbackOpened {
		return nil
	}
	if err := f.fallback.Open(ctx); err != nil {
		return err
	}
	f.fallbackOpened = true
	return nil
}

func (f *Facade) apply(event Event) {
	for {
		current := f.State()
		next := nextState(current, event)
		if next == current {
			return
		}
		if f.storageState.CompareAndSwap(int32(current), int32(next)) {
			f.metrics.Gauge("storage_state", nil).Set(float64(next))
			if current == types.StatePrimary && next == types.StateFallback {
				f.metrics.Counter("storage_fallback_transitions_total", nil).Inc()
			}
			return
		}
	}
}

func (f *Facade) active(ctx context.Context) (types.Backend, types.StorageState, error) {
	if err := f.Initialize(ctx); err != nil {
		return nil, types.StateUninitialized, err
	}

	switch state := f.State(); state {
	case types.StatePrimary:
		return f.primary, state, nil
	case types.StateFallback:
		return f.fallback, state, nil
	default:
		return nil, state, types.ErrNotInitialized
	}
}

// run executes op on the active backend. A classified primary failure moves
// the facade to fallback and replays op there; only a failure of both
// backends in the same call reaches the caller as ErrStorageUnavailable.
func (f *Facade) run(ctx context.Context, operation string, op func(ctx context.Context, backend types.Backend) error) error {
	if f.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opTimeout)
		defer cancel()
	}

	backend, state, err := f.active(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, backend)
	if err == nil {
		f.record(operation, backend, "ok")
		return nil
	}

	event := classify(err)
	if state != types.StatePrimary || event == EventNone {
		f.record(operation, backend, "error")
		return err
	}

	f.record(operation, backend, "failover")
	f.logger.Warn("Primary backend failed, switching to fallback",
		zap.String("operation", operation),
		zap.String("event", event.String()),
		zap.Error(err))

	if fbErr := f.openFallback(ctx); fbErr != nil {
		return fmt.Errorf("%w: %s: primary: %w; fallback: %w", types.ErrStorageUnavailable, operation, err, fbErr)
	}
	f.apply(event)

	if fbErr := op(ctx, f.fallback); fbErr != nil {
		f.record(operation, f.fallback, "error")
		return fmt.Errorf("%w: %s: primary: %w; fallback: %w", types.ErrStorageUnavailable, operation, err, fbErr)
	}

	f.record(operation, f.fallback, "ok")
	return nil
}

func (f *Facade) record(operation string, backend types.Backend, result string) {
	f.metrics.Counter("storage_operations_total", map[string]string{
		"operation": operation,
		"backend":   backend.Name(),
		"result":    result,
	}).Inc()
}

func (f *Facade) GetAll(ctx context.Context, collection string) ([]types.Record, error) {
	var records []types.Record
	err := f.run(ctx, "get_all", func(ctx context.Context, b types.Backend) error {
		var err error
		records, err = b.GetAll(ctx, collection)
		return err
	})
	return records, err
}

func (f *Facade) GetByID(ctx context.Context, collection, id string) (types.Record, bool, error) {
	var record types.Record
	var found bool
	err := f.run(ctx, "get_by_id", func(ctx context.Context, b types.Backend) error {
		var err error
		record, found, err = b.Get(ctx, collection, id)
		return err
	})
	return record, found, err
}

func (f *Facade) GetByIndex(ctx context.Context, collection, index, value string) ([]types.Record, error) {
	var records []types.Record
	err := f.run(ctx, "get_by_index", func(ctx context.Context, b types.Backend) error {
		var err error
		records, err = b.GetByIndex(ctx, collection, index, value)
		return err
	})
	return records, err
}

func (f *Facade) Put(ctx context.Context, collection string, record types.Record) error {
	if record.ID == "" {
		return types.ErrRecordIDEmpty
	}
	return f.run(ctx, "put", func(ctx context.Context, b types.Backend) error {
		return b.Put(ctx, collection, record)
	})
}

// Delete removes one record. Dependents are the caller's to delete.
func (f *Facade) Delete(ctx context.Context, collection, id string) error {
	return f.run(ctx, "delete", func(ctx context.Context, b types.Backend) error {
		return b.Delete(ctx, collection, id)
	})
}

// ReplaceAll clears the collection and writes records. It is one
// transaction on the primary and a plain overwrite on the fallback.
func (f *Facade) ReplaceAll(ctx context.Context, collection string, records []types.Record) error {
	return f.run(ctx, "replace_all", func(ctx context.Context, b types.Backend) error {
		return b.ReplaceAll(ctx, collection, records)
	})
}

func (f *Facade) PurgeExpired(ctx context.Context, collection string, nowMs int64) (int, error) {
	var removed int
	err := f.run(ctx, "purge_expired", func(ctx context.Context, b types.Backend) error {
		var err error
		removed, err = b.PurgeExpired(ctx, collection, nowMs)
		return err
	})
	return removed, err
}

func (f *Facade) Start() error {
	if !f.transitionState(ManagerStateStopped, ManagerStateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if err := f.Initialize(f.ctx); err != nil {
		f.setState(ManagerStateStopped)
		return types.WrapError(err, "failed to initialize storage")
	}

	f.setState(ManagerStateRunning)
	f.logger.Info("Storage facade started", zap.String("state", f.State().String()))
	return nil
}

func (f *Facade) Stop() error {
	if !f.transitionState(ManagerStateRunning, ManagerStateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		f.setState(ManagerStateStopped)
		f.cancel()
	}()

	if err := f.Close(); err != nil {
		f.logger.Error("Error during storage shutdown", zap.Error(err))
		return err
	}

	f.logger.Info("Storage facade stopped gracefully")
	return nil
}

// Close releases every backend handle without touching the lifecycle state.
func (f *Facade) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	closers := []func() error{f.primary.Close, f.fallback.Close}
	if f.legacy != nil {
		closers = append(closers, f.legacy.Close)
	}

	for _, closeFn := range closers {
		closeFn := closeFn
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return closeFn()
			}
		})
	}

	return g.Wait()
}

func (f *Facade) IsRunning() bool {
	return f.getState() == ManagerStateRunning
}

func (f *Facade) getState() ManagerState {
	return f.state.Load().(ManagerState)
}

func (f *Facade) setState(newState ManagerState) {
	f.state.Store(newState)
}

func (f *Facade) transitionState(from, to ManagerState) bool {
	return f.state.CompareAndSwap(from, to)
}
