package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"doggygallery/internal/logging"
	"doggygallery/internal/metrics"
)

// Config holds the thresholds of the thumbnail backpressure gate.
type Config struct {
	// MemoryLimitBytes overrides the limit; 0 uses GOMEMLIMIT if set.
	MemoryLimitBytes int64

	// ResumeRatio is the share of the limit below which a closed gate
	// opens again.
	ResumeRatio float64

	// PauseRatio is the share of the limit at which the gate closes.
	PauseRatio float64

	// SampleInterval is how often heap usage is sampled.
	SampleInterval time.Duration
}

// DefaultConfig returns the gate thresholds used by the server.
func DefaultConfig() Config {
	return Config{
		ResumeRatio:    0.7,
		PauseRatio:     0.85,
		SampleInterval: 5 * time.Second,
	}
}

// Usage is one heap sample relative to the limit.
type Usage struct {
	Alloc int64
	Limit int64
	Ratio float64
}

// Monitor samples heap usage and holds thumbnail decoding while usage is
// above PauseRatio. It implements media.Gate. A Monitor without a limit
// never closes.
type Monitor struct {
	config Config
	limit  int64

	stopOnce sync.Once
	stopped  chan struct{}

	mu     sync.RWMutex
	alloc  uint64
	closed bool
	// reopened is closed and replaced each time the gate opens.
	reopened chan struct{}
}

// NewMonitor creates a Monitor. Call Start to begin sampling.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
			logging.Info("Thumbnail backpressure using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}
	if limit == 0 {
		logging.Debug("Thumbnail backpressure disabled: no memory limit")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		stopped:  make(chan struct{}),
		reopened: make(chan struct{}),
	}
}

// Start samples in the background until Stop. It does nothing without a
// limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				m.record(stats.Alloc)
			case <-m.stopped:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every waiter. It is safe to call twice.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// record applies one heap sample to the gate.
func (m *Monitor) record(alloc uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alloc = alloc
	if m.limit <= 0 {
		return
	}

	ratio := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(ratio)

	if !m.closed && ratio >= m.config.PauseRatio {
		logging.Warn("Heap at %.1f%% of limit, holding thumbnail generation", ratio*100)
		m.closed = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
		return
	}
	if m.closed && ratio < m.config.ResumeRatio {
		logging.Info("Heap at %.1f%% of limit, resuming thumbnail generation", ratio*100)
		m.closed = false
		metrics.MemoryPaused.Set(0)
		close(m.reopened)
		m.reopened = make(chan struct{})
	}
}

// Wait blocks while the gate is closed. It returns nil once the gate opens
// or the monitor stops, and ctx.Err() if ctx ends first.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	closed, reopened := m.closed, m.reopened
	m.mu.RUnlock()
	if !closed {
		return nil
	}

	select {
	case <-reopened:
		return nil
	case <-m.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether the gate is closed.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Usage returns the latest sample.
func (m *Monitor) Usage() Usage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u := Usage{Alloc: math.MaxInt64, Limit: m.limit}
	if m.alloc <= math.MaxInt64 {
		u.Alloc = int64(m.alloc)
	}
	if m.limit > 0 {
		u.Ratio = float64(m.alloc) / float64(m.limit)
	}
	return u
}
