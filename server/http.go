// Package server exposes the read-only operations endpoints over fasthttp.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ratneshs230/Digital-Courtroom-sub001/metrics"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// StatsFunc reports the runtime state served on /stats.
type StatsFunc func(ctx context.Context) (interface{}, error)

type Option func(*OpsServer)

func WithMetrics(manager types.MetricsManager) Option {
	return func(s *OpsServer) {
		if manager != nil {
			s.metrics = manager
		}
	}
}

func WithHealth(health types.HealthManager) Option {
	return func(s *OpsServer) {
		s.health = health
	}
}

func WithStats(stats StatsFunc) Option {
	return func(s *OpsServer) {
		s.stats = stats
	}
}

type versioner interface {
	Version() types.VersionInfo
}

type OpsServer struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          types.Logger
	metrics         types.MetricsManager
	health          types.HealthManager
	stats           StatsFunc
	config          *types.ServerConfig
	server          *fasthttp.Server
	listener        net.Listener
	routes          map[string]fasthttp.RequestHandler
	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewOpsServer(ctx context.Context, config types.ConfigManager, logger types.Logger, opts ...Option) (*OpsServer, error) {
	serverConfig := config.GetConfig().Server
	if serverConfig == nil {
		return nil, types.Errorf(types.ErrConfigIsNil, "server section")
	}

	serverCtx, cancel := context.WithCancel(ctx)

	s := &OpsServer{
		ctx:             serverCtx,
		cancel:          cancel,
		logger:          logger,
		metrics:         metrics.Nop(),
		config:          serverConfig,
		shutdownTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes = map[string]fasthttp.RequestHandler{
		"GET:/health":  s.handleHealth,
		"GET:/version": s.handleVersion,
		"GET:/metrics": s.metricsHandler(),
		"GET:/stats":   s.handleStats,
	}

	s.state.Store(StateStopped)

	return s, nil
}

func (s *OpsServer) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.setState(StateStopped)
		return types.Errorf(types.ErrServerStartFailed, "listen %s: %v", addr, err)
	}

	s.listener = listener
	s.server = &fasthttp.Server{
		Handler:         s.Handler(),
		Name:            "courtcore-ops",
		ReadTimeout:     s.config.ReadTimeout,
		WriteTimeout:    s.config.WriteTimeout,
		IdleTimeout:     time.Minute,
		CloseOnShutdown: true,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.logger.Error("Ops server failed", zap.Error(err))
			s.setState(StateStopped)
		}
	}()

	s.setState(StateRunning)
	s.logger.Info("Ops server started", zap.String("address", listener.Addr().String()))
	return nil
}

func (s *OpsServer) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		s.setState(StateStopped)
		s.cancel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.server.ShutdownWithContext(gCtx)
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("Ops server stop timeout, some connections may not have closed", zap.Error(err))
		return types.WrapError(err, types.ErrServerStopFailed.Error())
	}

	s.logger.Info("Ops server stopped gracefully")
	return nil
}

func (s *OpsServer) IsRunning() bool {
	return s.getState() == StateRunning
}

// Addr is the bound listener address, useful when the port was 0.
func (s *OpsServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *OpsServer) getState() State {
	return s.state.Load().(State)
}

func (s *OpsServer) setState(newState State) {
	s.state.Store(newState)
}

func (s *OpsServer) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

// Handler routes by "METHOD:path" and records per-route metrics.
func (s *OpsServer) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		var buf [64]byte
		key := append(append(append(buf[:0], ctx.Method()...), ':'), ctx.Path()...)

		handler, ok := s.routes[utils.BytesToString(key)]
		if !ok {
			ctx.Error("Not found", fasthttp.StatusNotFound)
			s.recordMetric("unmatched", ctx.Response.StatusCode(), time.Since(start))
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Ops handler panicked", zap.ByteString("path", ctx.Path()), zap.Any("panic", r))
					ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
				}
			}()
			handler(ctx)
		}()

		s.recordMetric(string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	}
}

func (s *OpsServer) handleHealth(ctx *fasthttp.RequestCtx) {
	if s.health == nil || !s.health.IsRunning() {
		s.writeError(ctx, types.ErrHealthIsNotRunning, fasthttp.StatusServiceUnavailable)
		return
	}

	report := s.health.Check(ctx)

	status := fasthttp.StatusOK
	if report.Status == types.StatusUnhealthy {
		status = fasthttp.StatusServiceUnavailable
	}
	s.writeJSON(ctx, status, report)
}

func (s *OpsServer) handleVersion(ctx *fasthttp.RequestCtx) {
	v, ok := s.health.(versioner)
	if !ok {
		s.writeError(ctx, types.ErrHealthIsNotRunning, fasthttp.StatusServiceUnavailable)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, v.Version())
}

// metricsHandler serves the Prometheus exposition when the backend has one
// and the JSON snapshot otherwise.
func (s *OpsServer) metricsHandler() fasthttp.RequestHandler {
	if exposer, ok := s.metrics.(interface{ Handler() http.Handler }); ok {
		if handler := exposer.Handler(); handler != nil {
			return fasthttpadaptor.NewFastHTTPHandler(handler)
		}
	}

	return func(ctx *fasthttp.RequestCtx) {
		data, err := s.metrics.GetMetrics()
		if err != nil {
			s.writeError(ctx, err, fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(data)
	}
}

func (s *OpsServer) handleStats(ctx *fasthttp.RequestCtx) {
	if s.stats == nil {
		s.writeError(ctx, types.ErrInvalidState, fasthttp.StatusNotFound)
		return
	}

	stats, err := s.stats(ctx)
	if err != nil {
		s.writeError(ctx, err, fasthttp.StatusInternalServerError)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, stats)
}

func (s *OpsServer) writeJSON(ctx *fasthttp.RequestCtx, status int, value interface{}) {
	data, err := utils.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(data)
}

func (s *OpsServer) writeError(ctx *fasthttp.RequestCtx, err error, status int) {
	s.writeJSON(ctx, status, map[string]string{"error": err.Error()})
}

func (s *OpsServer) recordMetric(route string, status int, duration time.Duration) {
	s.metrics.Counter("ops_http_requests_total", map[string]string{
		"route":  route,
		"status": fmt.Sprint(status),
	}).Inc()

	s.metrics.Histogram("ops_http_request_duration_seconds",
		[]float64{0.001, 0.01, 0.1, 1.0},
		map[string]string{"route": route},
	).Observe(duration.Seconds())
}
