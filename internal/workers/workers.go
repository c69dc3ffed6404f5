package workers

import (
	"runtime"
)

// Count returns a worker count of multiplier workers per usable CPU,
// capped at limit (0 means no cap). GOMAXPROCS is used rather than
// NumCPU so container CPU limits are respected.
//
// A positive override replaces the computed value but is still capped.
func Count(multiplier float64, limit, override int) int {
	if override > 0 {
		if limit > 0 && override > limit {
			return limit
		}
		return override
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns the worker count for CPU-bound work such as image decoding
// and resizing: one per CPU.
func ForCPU(limit, override int) int {
	return Count(1.0, limit, override)
}
