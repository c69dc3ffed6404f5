package filesystem

import (
	"errors"
	"time"
)

// Observer records resolver metrics. Implementations are provided by the
// metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveResolve records the duration of one resolution and its outcome:
	// "ok", "traversal", "hidden", "not_found" or "error".
	ObserveResolve(outcome string, durationSeconds float64)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

// Outcome classifies a resolver error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPathTraversal):
		return "traversal"
	case errors.Is(err, ErrHiddenFile):
		return "hidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func observeResolve(start time.Time, err error) {
	if defaultObserver == nil {
		return
	}
	defaultObserver.ObserveResolve(Outcome(err), time.Since(start).Seconds())
}

func observeRejection(err error) {
	if defaultObserver == nil {
		return
	}
	defaultObserver.ObserveResolve(Outcome(err), 0)
}
