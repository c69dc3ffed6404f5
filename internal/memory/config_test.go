package memory

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"
)

// noCgroup points the cgroup lookup at a missing file for the test.
func noCgroup(t *testing.T) {
	t.Helper()
	old := cgroupMemoryMax
	cgroupMemoryMax = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { cgroupMemoryMax = old })
}

func TestConfigureFromEnv(t *testing.T) {
	original := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(original) })
	noCgroup(t)

	tests := []struct {
		name       string
		limit      string
		ratio      string
		wantSource string
		wantLimit  int64
	}{
		{name: "unset", wantSource: SourceNone},
		{name: "invalid", limit: "lots", wantSource: SourceNone},
		{name: "negative", limit: "-5", wantSource: SourceNone},
		{name: "default ratio", limit: "1000000", wantSource: SourceEnv, wantLimit: 850000},
		{name: "custom ratio", limit: "1000000", ratio: "0.5", wantSource: SourceEnv, wantLimit: 500000},
		{name: "out of range ratio", limit: "1000000", ratio: "1.5", wantSource: SourceEnv, wantLimit: 850000},
		{name: "unparsable ratio", limit: "1000000", ratio: "half", wantSource: SourceEnv, wantLimit: 850000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", result.Source, tt.wantSource)
			}
			if result.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantLimit)
			}
		})
	}
}

func TestConfigureFromCgroup(t *testing.T) {
	original := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(original) })

	file := filepath.Join(t.TempDir(), "memory.max")
	if err := os.WriteFile(file, []byte("2000000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := cgroupMemoryMax
	cgroupMemoryMax = file
	t.Cleanup(func() { cgroupMemoryMax = old })

	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()
	if result.Source != SourceCgroup || result.ContainerLimit != 2000000 || result.GoMemLimit != 1700000 {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestParseCgroupMax(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"max\n", 0},
		{"", 0},
		{"1073741824\n", 1 << 30},
		{"garbage", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		if got := parseCgroupMax(tt.in); got != tt.want {
			t.Errorf("parseCgroupMax(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 30, "1.0 GiB"},
		{-3, "-3 B"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
