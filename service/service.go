// Package service wires the storage, cache and coordination components
// into one lifecycle.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ratneshs230/Digital-Courtroom-sub001/cache"
	"github.com/ratneshs230/Digital-Courtroom-sub001/config"
	"github.com/ratneshs230/Digital-Courtroom-sub001/coordinator"
	"github.com/ratneshs230/Digital-Courtroom-sub001/cron"
	"github.com/ratneshs230/Digital-Courtroom-sub001/fingerprint"
	"github.com/ratneshs230/Digital-Courtroom-sub001/health"
	"github.com/ratneshs230/Digital-Courtroom-sub001/logger"
	"github.com/ratneshs230/Digital-Courtroom-sub001/metrics"
	"github.com/ratneshs230/Digital-Courtroom-sub001/server"
	"github.com/ratneshs230/Digital-Courtroom-sub001/storage"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const maxHealthyPending = 1000

type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          types.LoggerManager
	metrics         types.MetricsManager
	health          *health.Manager
	storage         *storage.Facade
	hasher          *fingerprint.Hasher
	cache           *cache.Cache
	coordinator     *coordinator.Coordinator
	cron            *cron.Manager
	server          *server.OpsServer
	state           atomic.Value
	shutdownTimeout time.Duration
	startTimeout    time.Duration
}

// NewService loads configPath and builds every component.
func NewService(ctx context.Context, configPath string) (*Service, error) {
	if configPath == "" {
		return nil, types.ErrConfigInvalidPath
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, types.WrapError(err, "config file does not exist")
	}

	cm, err := config.NewConfigurationManager(ctx, configPath)
	if err != nil {
		return nil, err
	}

	return New(ctx, cm)
}

// New builds every component from an already loaded configuration.
// Nothing is opened or started until Start.
func New(ctx context.Context, cm types.ConfigManager) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	s := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		config:          cm,
		shutdownTimeout: 30 * time.Second,
		startTimeout:    60 * time.Second,
	}
	s.state.Store(StateStopped)

	if err := s.build(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Service) build() error {
	cfg := s.config.GetConfig()

	loggerManager, err := logger.NewManager(s.ctx, s.config)
	if err != nil {
		return types.WrapError(err, "failed to create logger")
	}
	s.logger = loggerManager

	metricsManager, err := metrics.NewManager(s.ctx, s.config, s.logger)
	switch {
	case types.IsError(err, types.ErrMetricsIsDisabled):
		s.metrics = metrics.Nop()
	case err != nil:
		return types.WrapError(err, "failed to create metrics manager")
	default:
		s.metrics = metricsManager
	}

	s.health, err = health.NewManager(s.ctx, s.config, s.logger)
	if err != nil {
		return types.WrapError(err, "failed to create health manager")
	}

	s.storage, err = storage.NewManager(s.ctx, s.config, s.logger, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create storage")
	}

	s.hasher, err = fingerprint.New(cfg.Hash, s.logger)
	if err != nil {
		return types.WrapError(err, "failed to create hasher")
	}

	s.cache = cache.New(s.storage, s.hasher, cfg.Cache, s.logger,
		cache.WithMetrics(s.metrics),
		cache.WithCollections(cfg.Storage.Collections.Names(types.KindCache)...))

	s.coordinator = coordinator.New(s.ctx, cfg.Coordinator, s.logger,
		coordinator.WithMetrics(s.metrics))

	s.cron, err = cron.NewManager(s.ctx, s.config, s.logger, s.metrics)
	if err != nil {
		return types.WrapError(err, "failed to create cron manager")
	}
	if err := s.cache.RegisterSweep(s.ctx, s.cron, cfg.Cache.SweepSpec); err != nil {
		return types.WrapError(err, "failed to schedule cache sweep")
	}

	s.health.RegisterChecker("storage", health.StorageChecker(s.storage))
	s.health.RegisterChecker("coordinator", health.CoordinatorChecker(s.coordinator, maxHealthyPending))
	s.health.RegisterChecker("hash", health.HashChecker(s.hasher))

	if cfg.Server != nil && cfg.Server.Enabled {
		s.server, err = server.NewOpsServer(s.ctx, s.config, s.logger,
			server.WithMetrics(s.metrics),
			server.WithHealth(s.health),
			server.WithStats(s.Stats))
		if err != nil {
			return types.WrapError(err, "failed to create ops server")
		}
	}

	return nil
}

// Start brings components up in dependency order. Storage is the only
// component whose failure aborts the start.
func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceIsRunning
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.startTimeout)
	defer cancel()

	if err := s.startComponents(ctx); err != nil {
		s.setState(StateStopped)
		return types.WrapError(err, "failed to start components")
	}

	s.setState(StateRunning)
	s.logger.Info("Service started",
		zap.String("name", s.config.GetConfig().Name),
		zap.String("storage_state", s.storage.State().String()))
	return nil
}

func (s *Service) startComponents(ctx context.Context) error {
	cfg := s.config.GetConfig()

	if err := s.logger.Start(); err != nil {
		return types.WrapError(err, "failed to start logger")
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			if err := s.metrics.Start(); err != nil {
				s.logger.Error("Failed to start metrics manager", zap.Error(err))
			}
			return nil
		})
	}

	if cfg.Health.Enabled {
		g.Go(func() error {
			if err := s.health.Start(); err != nil {
				s.logger.Error("Failed to start health manager", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		default:
			return s.storage.Start()
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.coordinator.Start(); err != nil {
		return types.WrapError(err, "failed to start coordinator")
	}

	if cfg.Cron.Enabled {
		if err := s.cron.Start(); err != nil {
			s.logger.Error("Failed to start cron manager", zap.Error(err))
		}
	}

	if s.server != nil {
		if err := s.server.Start(); err != nil {
			s.logger.Error("Failed to start ops server", zap.Error(err))
		}
	}

	return nil
}

// Stop shuts components down in reverse order and collects their errors.
func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceIsNotRunning
	}

	defer func() {
		s.setState(StateStopped)
		s.cancel()
	}()

	s.logger.Info("Stopping service components...")

	var errs []error
	stop := func(name string, manager types.LifecycleManager) {
		if !manager.IsRunning() {
			return
		}
		if err := manager.Stop(); err != nil {
			s.logger.Error("Failed to stop component", zap.String("component", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if s.server != nil {
		stop("server", s.server)
	}
	stop("cron", s.cron)
	stop("coordinator", s.coordinator)
	stop("storage", s.storage)
	stop("health", s.health)
	stop("metrics", s.metrics)

	s.logger.Info("Service stopped gracefully")
	stop("logger", s.logger)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", types.ErrServerStopFailed, errs)
	}
	return nil
}

// Run starts the service and blocks until ctx ends or SIGINT/SIGTERM arrives.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("service panic: %v", r)
			s.logger.Error("Service run panic", zap.Stack(string(buf[:n])))
		}
	}()

	if err := s.Start(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		s.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	case <-s.ctx.Done():
	}

	return s.Stop()
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) setState(newState State) {
	s.state.Store(newState)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

func (s *Service) Logger() types.Logger                  { return s.logger }
func (s *Service) Storage() *storage.Facade              { return s.storage }
func (s *Service) Cache() *cache.Cache                   { return s.cache }
func (s *Service) Coordinator() *coordinator.Coordinator { return s.coordinator }
func (s *Service) Hasher() *fingerprint.Hasher           { return s.hasher }
func (s *Service) Health() *health.Manager               { return s.health }

type Stats struct {
	StorageState    string   `json:"storage_state"`
	PendingRequests int      `json:"pending_requests"`
	HashAlgorithm   string   `json:"hash_algorithm"`
	HashDegraded    bool     `json:"hash_degraded"`
	CronJobs        []string `json:"cron_jobs"`
}

// Stats is the runtime snapshot served on /stats.
func (s *Service) Stats(_ context.Context) (interface{}, error) {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name)
	}

	return Stats{
		StorageState:    s.storage.State().String(),
		PendingRequests: s.coordinator.Pending(),
		HashAlgorithm:   s.hasher.Algorithm(),
		HashDegraded:    s.hasher.Degraded(),
		CronJobs:        names,
	}, nil
}
