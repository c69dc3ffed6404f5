package metrics

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"doggygallery/internal/logging"
)

// LibraryCounts maps a media type label ("image", "video", "audio") to the
// number of cataloged files of that type.
type LibraryCounts map[string]int

// Library reports the size of the catalog.
type Library interface {
	LibraryCounts() LibraryCounts
}

// libraryTypes are always exported, even at zero.
var libraryTypes = []string{"image", "video", "audio"}

// Collector refreshes the gauges that are sampled rather than counted:
// library size and Go runtime memory.
type Collector struct {
	library  Library
	interval time.Duration
	ctx      context.Context
	stop     context.CancelFunc
	done     sync.WaitGroup
}

// NewCollector creates a collector. A nil library still samples runtime
// memory.
func NewCollector(library Library, interval time.Duration) *Collector {
	ctx, stop := context.WithCancel(context.Background())
	return &Collector{library: library, interval: interval, ctx: ctx, stop: stop}
}

// Start samples once immediately and then every interval until Stop.
func (c *Collector) Start() {
	c.done.Add(1)
	go func() {
		defer c.done.Done()
		c.collect()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

// Stop ends sampling and waits for an in-progress sample to finish.
func (c *Collector) Stop() {
	c.stop()
	c.done.Wait()
}

func (c *Collector) collect() {
	sampleRuntime()
	if c.library == nil {
		return
	}

	counts := c.library.LibraryCounts()
	for _, typ := range libraryTypes {
		MediaFilesTotal.WithLabelValues(typ).Set(float64(counts[typ]))
	}
	logging.Debug("Library: %d images, %d videos, %d audio", counts["image"], counts["video"], counts["audio"])
}

func sampleRuntime() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemAllocBytes.Set(float64(m.Alloc))
	GoMemSysBytes.Set(float64(m.Sys))
	GoGCRuns.Set(float64(m.NumGC))

	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 {
		limit = 0
	}
	GoMemLimit.Set(float64(limit))
}
