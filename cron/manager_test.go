package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/config"
	"github.com/ratneshs230/Digital-Courtroom-sub001/logger"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	cfg, err := config.NewStaticManager(context.Background(), config.Defaults())
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	m, err := NewManager(context.Background(), cfg, logger.NewNop(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAddValidation(t *testing.T) {
	m := newTestManager(t)
	noop := func() {}

	tests := []struct {
		name    string
		jobName string
		spec    string
		job     func()
		want    error
	}{
		{"empty name", "", "* * * * * *", noop, types.ErrCronJobNameIsEmpty},
		{"empty spec", "job", "", noop, types.ErrCronExpressionInvalid},
		{"nil job", "job", "* * * * * *", nil, types.ErrCronJobIsNil},
		{"bad spec", "job", "not a spec", noop, types.ErrCronExpressionInvalid},
		{"five fields", "job", "* * * * *", noop, types.ErrCronExpressionInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Add(tt.jobName, tt.spec, tt.job); !types.IsError(err, tt.want) {
				t.Fatalf("Add() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddRemoveJobs(t *testing.T) {
	m := newTestManager(t)

	if err := m.Add("b.job", "0 0 * * * *", func() {}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add("a.job", "0 */5 * * * *", func() {}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add("a.job", "0 */5 * * * *", func() {}); !types.IsError(err, types.ErrCronJobExists) {
		t.Fatalf("duplicate add: %v", err)
	}

	jobs := m.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "a.job" || jobs[1].Name != "b.job" {
		t.Fatalf("jobs = %+v", jobs)
	}

	if err := m.Remove("a.job"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Remove("a.job"); !types.IsError(err, types.ErrCronJobNotFound) {
		t.Fatalf("second remove: %v", err)
	}
	if len(m.Jobs()) != 1 {
		t.Fatalf("jobs after remove = %d", len(m.Jobs()))
	}
}

func TestScheduledJobRuns(t *testing.T) {
	m := newTestManager(t)

	var runs atomic.Int32
	if err := m.Add("tick", "* * * * * *", func() { runs.Add(1) }); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(); !types.IsError(err, types.ErrCronIsRunning) {
		t.Fatalf("second start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.IsRunning() {
		t.Fatal("still running after stop")
	}

	jobs := m.Jobs()
	if len(jobs) != 1 || jobs[0].RunCount == 0 || jobs[0].LastRun.IsZero() {
		t.Fatalf("job stats not recorded: %+v", jobs)
	}

	if err := m.Add("late", "* * * * * *", func() {}); !types.IsError(err, types.ErrCronSchedulerStopped) {
		t.Fatalf("add after stop: %v", err)
	}
}

func TestPanickingJobIsRecorded(t *testing.T) {
	m := newTestManager(t)

	if err := m.Add("boom", "0 0 0 1 1 *", func() { panic("boom") }); err != nil {
		t.Fatalf("add: %v", err)
	}

	m.wrapJob("boom", func() { panic("boom") })()

	jobs := m.Jobs()
	if len(jobs) != 1 || !types.IsError(jobs[0].Error, types.ErrCronJobFailed) {
		t.Fatalf("job error = %v", jobs[0].Error)
	}
}
