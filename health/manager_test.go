package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ratneshs230/Digital-Courtroom-sub001/config"
	"github.com/ratneshs230/Digital-Courtroom-sub001/logger"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type stateSource types.StorageState

func (s stateSource) State() types.StorageState { return types.StorageState(s) }

type pendingSource int

func (p pendingSource) Pending() int { return int(p) }

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	cfg, err := config.NewStaticManager(context.Background(), config.Defaults())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	m, err := NewManager(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCheckAggregatesStatus(t *testing.T) {
	tests := []struct {
		name    string
		storage types.StorageState
		pending int
		want    types.HealthStatus
	}{
		{"primary", types.StatePrimary, 0, types.StatusHealthy},
		{"fallback", types.StateFallback, 0, types.StatusHealthy},
		{"uninitialized", types.StateUninitialized, 0, types.StatusUnknown},
		{"overloaded", types.StatePrimary, 11, types.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			m.RegisterChecker("storage", StorageChecker(stateSource(tt.storage)))
			m.RegisterChecker("coordinator", CoordinatorChecker(pendingSource(tt.pending), 10))

			report := m.Check(context.Background())
			if report.Status != tt.want {
				t.Fatalf("status = %s, want %s", report.Status, tt.want)
			}
			if report.Summary.Total != 2 {
				t.Fatalf("total = %d", report.Summary.Total)
			}
			if report.Checks["storage"].Details["state"] != tt.storage.String() {
				t.Fatalf("storage details = %v", report.Checks["storage"].Details)
			}
		})
	}
}

func TestCheckRecoversPanics(t *testing.T) {
	m := newTestManager(t)
	m.RegisterChecker("broken", func(ctx context.Context) types.HealthCheck {
		panic("checker exploded")
	})

	report := m.Check(context.Background())
	if report.Status != types.StatusUnhealthy || report.Checks["broken"].Status != types.StatusUnhealthy {
		t.Fatalf("report = %+v", report)
	}
	if len(m.LastResults()) != 1 {
		t.Fatal("results not retained")
	}
}

func TestLifecycle(t *testing.T) {
	m := newTestManager(t)

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(); !types.IsError(err, types.ErrServerAlreadyRunning) {
		t.Fatalf("second start: %v", err)
	}
	if v := m.Version(); v.Name != "courtcore" || v.BuildInfo == "" {
		t.Fatalf("version = %+v", v)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.Stop(); !types.IsError(err, types.ErrServerNotRunning) {
		t.Fatalf("second stop: %v", err)
	}
}

func TestReadBuildInfoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.info")
	content := "# generated\nVERSION=1.4.0\nGIT_COMMIT=abcdef123456\nBUILD_TIME=2024-03-01T10:00:00Z\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	info := readBuildInfo(filepath.Join(t.TempDir(), "missing"), path)
	if info.Version != "1.4.0" || info.GitCommit != "abcdef123456" || info.BuildTime.Year() != 2024 {
		t.Fatalf("info = %+v", info)
	}
	if got := info.String(); got[:len("1.4.0-abcdef1 (2024-03-01")] != "1.4.0-abcdef1 (2024-03-01" {
		t.Fatalf("string = %s", got)
	}
}
