package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const defaultLoggerType = "zap"

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type Option func(*Manager)

// WithCreator makes an extra logger type selectable through logger.type.
func WithCreator(name string, creator types.LoggerCreator) Option {
	return func(m *Manager) {
		m.creators[name] = creator
	}
}

// Manager owns the process logger and flushes it on Stop.
type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   types.Logger
	creators map[string]types.LoggerCreator
	state    atomic.Value
}

func NewManager(ctx context.Context, config types.ConfigManager, opts ...Option) (types.LoggerManager, error) {
	loggerConfig := config.GetConfig().Logger
	if loggerConfig == nil {
		return nil, types.ErrLoggerConfigInvalid
	}

	m := &Manager{
		creators: map[string]types.LoggerCreator{
			defaultLoggerType: func(_ interface{}) (types.Logger, error) {
				return NewDefaultLogger(loggerConfig)
			},
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	logger, err := m.create(loggerConfig)
	if err != nil {
		return nil, types.WrapError(err, "failed to create logger")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.logger = logger
	m.state.Store(StateStopped)
	return m, nil
}

func (m *Manager) create(loggerConfig *types.LoggerConfig) (types.Logger, error) {
	name := loggerConfig.Type
	if name == "" || name == "default" {
		name = defaultLoggerType
	}

	creator, ok := m.creators[name]
	if !ok {
		return nil, types.Errorf(types.ErrLoggerTypeUnknown, "logger type: %s", name)
	}
	return creator(loggerConfig.Config)
}

func (m *Manager) Start() error {
	if !m.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrServerAlreadyRunning
	}
	return nil
}

// Stop flushes buffered entries. Console sinks report EINVAL on sync, so
// that error is dropped.
func (m *Manager) Stop() error {
	if !m.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}
	defer func() {
		m.state.Store(StateStopped)
		m.cancel()
	}()

	if syncer, ok := m.logger.(interface{ Sync() error }); ok {
		_ = syncer.Sync()
	}
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.state.Load().(State) == StateRunning
}

func (m *Manager) Error(msg string, fields ...zap.Field) {
	m.logger.Error(msg, fields...)
}

func (m *Manager) ErrorWithErrStack(msg string, err error, fields ...zap.Field) {
	m.logger.ErrorWithErrStack(msg, err, fields...)
}

func (m *Manager) Warn(msg string, fields ...zap.Field) {
	m.logger.Warn(msg, fields...)
}

func (m *Manager) Info(msg string, fields ...zap.Field) {
	m.logger.Info(msg, fields...)
}

func (m *Manager) Debug(msg string, fields ...zap.Field) {
	m.logger.Debug(msg, fields...)
}

func (m *Manager) Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	m.logger.Log(lvl, msg, fields...)
}
