package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"doggygallery/internal/filesystem"
	"doggygallery/internal/lightbox"
	"doggygallery/internal/logging"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/metrics"
)

// ErrNoMatch is returned by Random when no item satisfies the filter.
var ErrNoMatch = errors.New("no matching media")

// Index is a point-in-time list of every media item under the root. It is
// rebuilt lazily after Invalidate or once it is older than maxAge.
type Index struct {
	resolver *filesystem.Resolver
	maxAge   time.Duration
	walk     func(root string, fn fs.WalkDirFunc) error
	watched  atomic.Int64

	mu      sync.RWMutex
	items   []MediaItem
	builtAt time.Time
	stale   bool

	buildMu sync.Mutex
}

// NewIndex creates an empty index. maxAge <= 0 disables age-based expiry.
func NewIndex(resolver *filesystem.Resolver, maxAge time.Duration) *Index {
	return &Index{resolver: resolver, maxAge: maxAge, walk: filepath.WalkDir, stale: true}
}

// Invalidate marks the index for rebuild on next use.
func (x *Index) Invalidate() {
	x.mu.Lock()
	x.stale = true
	x.mu.Unlock()
}

func (x *Index) fresh() ([]MediaItem, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.stale {
		return nil, false
	}
	if x.maxAge > 0 && time.Since(x.builtAt) > x.maxAge {
		return nil, false
	}
	return x.items, true
}

// Snapshot returns the current item list, rebuilding it if needed. The
// returned slice is shared and must not be modified.
func (x *Index) Snapshot(ctx context.Context) ([]MediaItem, error) {
	if items, ok := x.fresh(); ok {
		return items, nil
	}

	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	if items, ok := x.fresh(); ok {
		return items, nil
	}

	x.mu.Lock()
	x.stale = false
	x.mu.Unlock()

	start := time.Now()
	items, err := x.build(ctx)
	if err != nil {
		x.Invalidate()
		metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	x.mu.Lock()
	x.items = items
	x.builtAt = time.Now()
	x.mu.Unlock()

	metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexRebuildDuration.Observe(time.Since(start).Seconds())
	metrics.IndexItems.Set(float64(len(items)))
	logging.Debug("Rebuilt media index: %d items in %v", len(items), time.Since(start))
	return items, nil
}

// build walks the whole tree. Symlinked files are resolved through the
// resolver; symlinked directories are not followed. Any read or stat
// failure aborts the build with an *IOError; entries that vanish during
// the walk are skipped.
func (x *Index) build(ctx context.Context) ([]MediaItem, error) {
	root := x.resolver.Root()
	var items []MediaItem
	scanned := 0

	relOf := func(p string) string {
		relOS, err := filepath.Rel(root, p)
		if err != nil {
			return p
		}
		return filepath.ToSlash(relOS)
	}

	err := x.walk(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p != root && errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			rel := ""
			if p != root {
				rel = relOf(p)
			}
			return &IOError{Op: "walk", Path: rel, Err: walkErr}
		}
		if p == root {
			return nil
		}

		name := d.Name()
		if filesystem.IsHiddenName(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		scanned++
		typ := mediatypes.FileTypeForName(name)
		if typ == mediatypes.FileTypeOther || typ == mediatypes.FileTypeArchive {
			return nil
		}

		rel := relOf(p)

		var info fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			res, err := x.resolver.Resolve(rel)
			if err != nil || res.IsDir() {
				return nil
			}
			info = res.Info
		} else {
			var err error
			info, err = d.Info()
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return &IOError{Op: "stat", Path: rel, Err: err}
			}
		}

		items = append(items, newItem(name, rel, info, typ))
		return nil
	})
	metrics.ScannerFilesScanned.WithLabelValues("index").Add(float64(scanned))
	if err != nil {
		return nil, err
	}

	sortItems(items)
	return items, nil
}

// Random returns a uniformly chosen item matching f. When exclude names a
// matching item and at least two match, the result differs from it.
func (x *Index) Random(ctx context.Context, f Filter, exclude string) (MediaItem, error) {
	all, err := x.Snapshot(ctx)
	if err != nil {
		return MediaItem{}, err
	}

	candidates := make([]MediaItem, 0, len(all))
	current := -1
	for _, item := range all {
		if !f.Matches(item) {
			continue
		}
		if item.Path == exclude {
			current = len(candidates)
		}
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return MediaItem{}, ErrNoMatch
	}
	if current < 0 {
		return candidates[rand.IntN(len(candidates))], nil
	}
	return candidates[lightbox.PickDifferent(randSource{}, len(candidates), current)], nil
}

type randSource struct{}

func (randSource) IntN(n int) int { return rand.IntN(n) }

// Watch invalidates the index whenever something under the root changes.
// It blocks until ctx is cancelled.
func (x *Index) Watch(ctx context.Context) error {
	return x.watch(ctx, func(dirs int) {
		logging.Info("  [OK] Filesystem watcher started, watching %d directories", dirs)
	})
}

// watch runs the event loop; ready is called once the initial directories
// are registered.
func (x *Index) watch(ctx context.Context, ready func(dirs int)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.ScannerWatcherErrors.Inc()
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := x.addDirectoriesToWatcher(watcher, x.resolver.Root())
	metrics.ScannerWatchedDirectories.Set(float64(watchCount))
	ready(watchCount)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			x.handleWatcherEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.ScannerWatcherErrors.Inc()
		}
	}
}

// addDirectoriesToWatcher adds every non-hidden directory under dir.
func (x *Index) addDirectoriesToWatcher(watcher *fsnotify.Watcher, dir string) int {
	watchCount := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && filesystem.IsHiddenName(d.Name()) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(p); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", p, addErr)
			metrics.ScannerWatcherErrors.Inc()
			return nil
		}
		watchCount++
		x.watched.Add(1)
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.ScannerWatcherErrors.Inc()
	}
	return watchCount
}

func (x *Index) handleWatcherEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	rel, err := filepath.Rel(x.resolver.Root(), event.Name)
	if err != nil || hasHiddenPart(rel) {
		return
	}

	metrics.ScannerWatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
	if event.Op == fsnotify.Chmod {
		return
	}
	x.Invalidate()

	if event.Op&fsnotify.Create != 0 {
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() {
			added := x.addDirectoriesToWatcher(watcher, event.Name)
			metrics.ScannerWatchedDirectories.Add(float64(added))
			logging.Debug("Added %d new directories to watcher under %s", added, rel)
		}
	}
}

func hasHiddenPart(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if filesystem.IsHiddenName(part) && part != "." {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

// LibraryCounts counts the files of the current snapshot by media type.
// It reuses a fresh snapshot and otherwise rebuilds one.
func (x *Index) LibraryCounts() metrics.LibraryCounts {
	items, err := x.Snapshot(context.Background())
	if err != nil {
		logging.Warn("Failed to collect library stats: %v", err)
		return nil
	}

	counts := make(metrics.LibraryCounts, 3)
	for _, item := range items {
		switch item.Type {
		case mediatypes.FileTypeImage, mediatypes.FileTypeVideo, mediatypes.FileTypeAudio:
			counts[string(item.Type)]++
		}
	}
	return counts
}
