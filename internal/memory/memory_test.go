package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testMonitor(limit int64) *Monitor {
	cfg := DefaultConfig()
	cfg.MemoryLimitBytes = limit
	return NewMonitor(cfg)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ResumeRatio >= cfg.PauseRatio {
		t.Errorf("resume ratio %v must be below pause ratio %v", cfg.ResumeRatio, cfg.PauseRatio)
	}
	if cfg.SampleInterval <= 0 {
		t.Errorf("SampleInterval = %v", cfg.SampleInterval)
	}
}

func TestMonitorPauseAndResume(t *testing.T) {
	m := testMonitor(1000)
	defer m.Stop()

	m.record(900)
	if !m.IsPaused() {
		t.Fatal("expected pause at 90% of limit")
	}

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	// Between the two ratios the gate stays closed.
	m.record(800)
	if !m.IsPaused() {
		t.Fatal("expected monitor to remain paused above the resume ratio")
	}

	m.record(100)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after recovery")
	}

	if u := m.Usage(); u.Alloc != 100 || u.Limit != 1000 || u.Ratio != 0.1 {
		t.Errorf("Usage = %+v", u)
	}
}

func TestMonitorWaitHonoursContext(t *testing.T) {
	m := testMonitor(1000)
	defer m.Stop()
	m.record(999)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	m := testMonitor(1000)
	m.record(999)

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()
	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not release waiter")
	}
}

func TestMonitorWithoutLimitNeverPauses(t *testing.T) {
	m := &Monitor{config: DefaultConfig(), stopped: make(chan struct{}), reopened: make(chan struct{})}
	m.Start()
	m.record(1 << 40)
	if m.IsPaused() {
		t.Error("monitor without limit paused")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
	m.Stop()
}
