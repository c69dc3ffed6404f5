package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"doggygallery/internal/archive"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/metrics"
)

// RootName is the breadcrumb label of the media root.
const RootName = "Home"

// Config holds scanner limits.
type Config struct {
	DefaultPerPage int
	MaxPerPage     int
	// IndexMaxAge bounds how long the recursive index is reused even when
	// no filesystem event invalidated it.
	IndexMaxAge time.Duration
}

// Scanner provides methods for scanning and listing media directories.
type Scanner struct {
	resolver *filesystem.Resolver
	cfg      Config
	index    *Index
}

// NewScanner creates a new Scanner instance.
func NewScanner(resolver *filesystem.Resolver, cfg Config) *Scanner {
	if cfg.MaxPerPage < 1 {
		cfg.MaxPerPage = 500
	}
	if cfg.DefaultPerPage < 1 || cfg.DefaultPerPage > cfg.MaxPerPage {
		cfg.DefaultPerPage = min(50, cfg.MaxPerPage)
	}
	return &Scanner{
		resolver: resolver,
		cfg:      cfg,
		index:    NewIndex(resolver, cfg.IndexMaxAge),
	}
}

// Index returns the recursive catalog index.
func (s *Scanner) Index() *Index {
	return s.index
}

// List returns one page of the media items directly inside dir, together
// with its subdirectories. Filtering happens before pagination.
func (s *Scanner) List(ctx context.Context, dir string, opts ListOptions) (listing *DirectoryListing, err error) {
	start := time.Now()
	defer observeOperation("list", start, &err)

	res, err := s.resolveDir(dir)
	if err != nil {
		return nil, err
	}

	if opts.Recursive {
		return s.searchIndex(ctx, res, opts)
	}

	scan, err := s.scanDir(ctx, res, false)
	if err != nil {
		return nil, err
	}

	listing = s.buildListing(res.Rel, filterItems(scan.items, opts.Filter), opts.Page, opts.PerPage)
	if scan.dirs != nil {
		listing.Subdirectories = scan.dirs
	}

	metrics.ScannerItemsReturned.WithLabelValues("list").Observe(float64(len(listing.Entries)))
	return listing, nil
}

// Search filters media items under dir. With opts.Recursive the whole
// subtree is searched through the index; otherwise only dir itself.
func (s *Scanner) Search(ctx context.Context, dir string, opts ListOptions) (listing *DirectoryListing, err error) {
	start := time.Now()
	defer observeOperation("search", start, &err)

	res, err := s.resolveDir(dir)
	if err != nil {
		return nil, err
	}
	if !opts.Recursive {
		scan, err := s.scanDir(ctx, res, false)
		if err != nil {
			return nil, err
		}
		return s.buildListing(res.Rel, filterItems(scan.items, opts.Filter), opts.Page, opts.PerPage), nil
	}
	return s.searchIndex(ctx, res, opts)
}

func (s *Scanner) searchIndex(ctx context.Context, res filesystem.Resolved, opts ListOptions) (*DirectoryListing, error) {
	all, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var matched []MediaItem
	for _, item := range all {
		if !underDir(item.Path, res.Rel) || !opts.Filter.Matches(item) {
			continue
		}
		matched = append(matched, item)
	}

	metrics.ScannerItemsReturned.WithLabelValues("search").Observe(float64(len(matched)))
	return s.buildListing(res.Rel, matched, opts.Page, opts.PerPage), nil
}

// MusicListing returns the audio files, subdirectories and audio-bearing
// archives of dir.
func (s *Scanner) MusicListing(ctx context.Context, dir string, page, perPage int) (listing *DirectoryListing, err error) {
	start := time.Now()
	defer observeOperation("music", start, &err)

	res, err := s.resolveDir(dir)
	if err != nil {
		return nil, err
	}

	scan, err := s.scanDir(ctx, res, true)
	if err != nil {
		return nil, err
	}

	listing = s.buildListing(res.Rel, filterItems(scan.items, Filter{Type: mediatypes.FileTypeAudio}), page, perPage)
	if scan.dirs != nil {
		listing.Subdirectories = scan.dirs
	}
	listing.Archives = scan.archives
	return listing, nil
}

func (s *Scanner) resolveDir(dir string) (filesystem.Resolved, error) {
	res, err := s.resolver.Resolve(dir)
	if err != nil {
		return filesystem.Resolved{}, err
	}
	if !res.IsDir() {
		return filesystem.Resolved{}, fmt.Errorf("%s: %w", res.Rel, ErrNotADirectory)
	}
	return res, nil
}

type dirScan struct {
	items    []MediaItem
	dirs     []string
	archives []MediaItem
}

// scanDir reads one directory through the resolver. Hidden entries and
// unrecognized extensions are dropped; entries that vanish between readdir
// and stat are skipped, any other failure aborts the scan.
func (s *Scanner) scanDir(ctx context.Context, res filesystem.Resolved, withArchives bool) (dirScan, error) {
	entries, err := s.resolver.ReadDir(res)
	if err != nil {
		return dirScan{}, &IOError{Op: "readdir", Path: res.Rel, Err: err}
	}
	metrics.ScannerFilesScanned.WithLabelValues("list").Add(float64(len(entries)))

	var scan dirScan
	for i, entry := range entries {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return dirScan{}, err
			}
		}

		name := entry.Name()
		if filesystem.IsHiddenName(name) {
			continue
		}
		rel := path.Join(res.Rel, name)

		target, ok, err := s.entryTarget(entry, rel)
		if err != nil {
			return dirScan{}, err
		}
		if !ok {
			continue
		}

		if target.IsDir() {
			scan.dirs = append(scan.dirs, name)
			continue
		}

		switch typ := mediatypes.FileTypeForName(name); typ {
		case mediatypes.FileTypeOther:
			continue
		case mediatypes.FileTypeArchive:
			if withArchives && s.archiveHasAudio(target) {
				scan.archives = append(scan.archives, newItem(name, rel, target.Info, typ))
			}
		default:
			scan.items = append(scan.items, newItem(name, rel, target.Info, typ))
		}
	}

	sortItems(scan.items)
	sortItems(scan.archives)
	sortNames(scan.dirs)
	return scan, nil
}

// entryTarget stats a directory entry. Symlinks go back through the
// resolver so that links leaving the root are not listed.
func (s *Scanner) entryTarget(entry fs.DirEntry, rel string) (filesystem.Resolved, bool, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		res, err := s.resolver.Resolve(rel)
		if err != nil {
			logging.Debug("Skipping symlink %s: %v", rel, err)
			return filesystem.Resolved{}, false, nil
		}
		return res, true, nil
	}

	info, err := entry.Info()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return filesystem.Resolved{}, false, nil
		}
		return filesystem.Resolved{}, false, &IOError{Op: "stat", Path: rel, Err: err}
	}
	return filesystem.Resolved{
		Rel:  rel,
		Abs:  filepath.Join(s.resolver.Root(), filepath.FromSlash(rel)),
		Info: info,
	}, true, nil
}

func (s *Scanner) archiveHasAudio(res filesystem.Resolved) bool {
	f, err := s.resolver.Open(res)
	if err != nil {
		logging.Debug("Skipping archive %s: %v", res.Rel, err)
		return false
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("failed to close archive %s: %v", res.Rel, err)
		}
	}()

	ok, err := archive.ContainsAudio(f, res.Info.Size(), res.Rel)
	if err != nil {
		logging.Warn("Failed to inspect archive %s: %v", res.Rel, err)
		return false
	}
	return ok
}

func newItem(name, rel string, info fs.FileInfo, typ mediatypes.FileType) MediaItem {
	ext := mediatypes.ArchiveSuffix(name)
	if ext == "" {
		ext = mediatypes.Ext(name)
	}
	return MediaItem{
		Name:      name,
		Path:      rel,
		Type:      typ,
		Extension: ext,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		MimeType:  mediatypes.GetMimeType(ext),
	}
}

func filterItems(items []MediaItem, f Filter) []MediaItem {
	if f.IsZero() {
		return items
	}
	out := make([]MediaItem, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// buildListing clamps the page window and constructs the listing.
func (s *Scanner) buildListing(rel string, items []MediaItem, page, perPage int) *DirectoryListing {
	perPage = s.clampPerPage(perPage)
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := max(1, (total+perPage-1)/perPage)

	// Compare page numbers before multiplying so huge pages cannot overflow.
	startIdx := total
	if page <= totalPages {
		startIdx = (page - 1) * perPage
	}
	endIdx := min(startIdx+perPage, total)

	entries := items[startIdx:endIdx:endIdx]
	if entries == nil {
		entries = []MediaItem{}
	}

	listing := &DirectoryListing{
		Path:           rel,
		Name:           RootName,
		Breadcrumb:     Breadcrumb(rel),
		Entries:        entries,
		Subdirectories: []string{},
		Page:           page,
		PerPage:        perPage,
		TotalEntries:   total,
		TotalPages:     totalPages,
	}
	if rel != "" {
		listing.Name = path.Base(rel)
		listing.HasParent = true
		if parent := path.Dir(rel); parent != "." {
			listing.Parent = parent
		}
	}
	return listing
}

func (s *Scanner) clampPerPage(perPage int) int {
	if perPage < 1 {
		return s.cfg.DefaultPerPage
	}
	return min(perPage, s.cfg.MaxPerPage)
}

// DefaultPerPage returns the configured page size.
func (s *Scanner) DefaultPerPage() int {
	return s.cfg.DefaultPerPage
}

// MaxPerPage returns the page size cap.
func (s *Scanner) MaxPerPage() int {
	return s.cfg.MaxPerPage
}

// Breadcrumb returns the navigation trail from the media root to rel.
func Breadcrumb(rel string) []PathPart {
	breadcrumb := []PathPart{{Name: RootName, Path: ""}}
	if rel == "" {
		return breadcrumb
	}

	current := ""
	for _, part := range strings.Split(rel, "/") {
		current = path.Join(current, part)
		breadcrumb = append(breadcrumb, PathPart{Name: part, Path: current})
	}
	return breadcrumb
}

// sortItems orders items by case-folded name with the raw name as the
// tiebreaker, so the order is total and deterministic.
func sortItems(items []MediaItem) {
	keys := make(map[string]string, len(items))
	for _, item := range items {
		keys[item.Name] = fold(item.Name)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := keys[items[i].Name], keys[items[j].Name]
		if ki != kj {
			return ki < kj
		}
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Path < items[j].Path
	})
}

func sortNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		fi, fj := fold(names[i]), fold(names[j])
		if fi != fj {
			return fi < fj
		}
		return names[i] < names[j]
	})
}

func underDir(itemPath, dir string) bool {
	if dir == "" {
		return true
	}
	return len(itemPath) > len(dir) && itemPath[:len(dir)] == dir && itemPath[len(dir)] == '/'
}

func observeOperation(op string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.ScannerOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.ScannerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
