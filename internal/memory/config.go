package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"doggygallery/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The remainder covers goroutine stacks, archive entries held for
// streaming and decoder scratch buffers outside the heap accounting.
const DefaultMemoryRatio = 0.85

// Limit sources reported in ConfigResult.Source.
const (
	SourceNone       = "none"
	SourceGoMemLimit = "GOMEMLIMIT"
	SourceEnv        = "MEMORY_LIMIT"
	SourceCgroup     = "cgroup"
)

// cgroupMemoryMax is the cgroup v2 memory limit of the current container.
var cgroupMemoryMax = "/sys/fs/cgroup/memory.max"

// ConfigResult reports how the heap limit was chosen.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT before the catalog and thumbnail workers
// start allocating. Precedence:
//
//   - GOMEMLIMIT, when set, is left alone and only reported
//   - MEMORY_LIMIT in bytes (Kubernetes Downward API)
//   - the cgroup v2 memory.max of the container
//
// MEMORY_RATIO (0.0-1.0] overrides DefaultMemoryRatio.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	container, source := containerLimit()
	if container <= 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT not configured")
		return ConfigResult{Source: SourceNone}
	}

	ratio := ratioFromEnv()
	goMemLimit := int64(float64(container) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s limit from %s)",
		formatBytes(goMemLimit), ratio*100, formatBytes(container), source)

	return ConfigResult{
		Configured:     true,
		Source:         source,
		ContainerLimit: container,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

// containerLimit returns the container memory limit in bytes and where it
// came from, or 0 when there is none.
func containerLimit() (int64, string) {
	if raw := os.Getenv("MEMORY_LIMIT"); raw != "" {
		limit, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || limit <= 0 {
			logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
			return 0, SourceNone
		}
		return limit, SourceEnv
	}

	data, err := os.ReadFile(cgroupMemoryMax)
	if err != nil {
		return 0, SourceNone
	}
	if limit := parseCgroupMax(string(data)); limit > 0 {
		return limit, SourceCgroup
	}
	return 0, SourceNone
}

// parseCgroupMax parses a memory.max file; "max" means unlimited.
func parseCgroupMax(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "max" {
		return 0
	}
	limit, err := strconv.ParseInt(s, 10, 64)
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

func ratioFromEnv() float64 {
	raw := os.Getenv("MEMORY_RATIO")
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1.0 {
		logging.Warn("MEMORY_RATIO %q must be in (0.0, 1.0], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

func formatBytes(b int64) string {
	if b < 0 {
		return strconv.FormatInt(b, 10) + " B"
	}
	return humanize.IBytes(uint64(b))
}
