package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrPathTraversal is returned when a requested path is absolute, contains
	// a ".." segment, or canonicalizes to a location outside the media root.
	ErrPathTraversal = errors.New("path traversal rejected")
	// ErrHiddenFile is returned when any segment of a path starts with ".".
	ErrHiddenFile = errors.New("hidden path rejected")
	// ErrNotFound is returned when a path passes validation but does not exist.
	ErrNotFound = errors.New("not found")
)

// ArchiveMarker separates an archive file from the entry path inside it.
const ArchiveMarker = "!/"

// maxDecodeRounds bounds repeated percent-decoding of untrusted input.
const maxDecodeRounds = 4

// Resolved is a path that has been validated against the media root.
type Resolved struct {
	// Rel is the canonical root-relative path using forward slashes. The
	// root itself is "".
	Rel string
	// Abs is the canonical absolute path on disk.
	Abs string
	// Info describes the target after symlink resolution.
	Info fs.FileInfo
}

// IsDir reports whether the resolved target is a directory.
func (r Resolved) IsDir() bool {
	return r.Info != nil && r.Info.IsDir()
}

// Name returns the final path element, or "" for the root.
func (r Resolved) Name() string {
	if r.Rel == "" {
		return ""
	}
	return path.Base(r.Rel)
}

// ArchiveRef addresses an entry inside an archive under the media root.
type ArchiveRef struct {
	Archive Resolved
	Inner   string
}

// Resolver turns untrusted relative paths into canonical paths confined to
// a single media root. It is safe for concurrent use.
type Resolver struct {
	root   string
	handle *os.Root
}

// NewResolver canonicalizes root and opens it for root-confined access.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalize media root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat media root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media root %s is not a directory", canonical)
	}
	handle, err := os.OpenRoot(canonical)
	if err != nil {
		return nil, fmt.Errorf("open media root: %w", err)
	}
	return &Resolver{root: canonical, handle: handle}, nil
}

// Root returns the canonical media root.
func (r *Resolver) Root() string {
	return r.root
}

// Close releases the root handle.
func (r *Resolver) Close() error {
	return r.handle.Close()
}

// Resolve validates requested and maps it onto the media root. Security
// rejections are decided from the request string alone, before any
// filesystem access, so they never reveal whether a target exists.
func (r *Resolver) Resolve(requested string) (Resolved, error) {
	start := time.Now()
	res, err := r.resolve(requested)
	observeResolve(start, err)
	return res, err
}

func (r *Resolver) resolve(requested string) (Resolved, error) {
	clean, err := CleanRelative(requested)
	if err != nil {
		return Resolved{}, err
	}

	full := r.root
	if clean != "" {
		full = filepath.Join(r.root, filepath.FromSlash(clean))
	}

	canonical, err := filepath.EvalSymlinks(full)
	if err != nil {
		if isNotFound(err) {
			return Resolved{}, fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return Resolved{}, fmt.Errorf("canonicalize %s: %w", clean, err)
	}

	rel, err := filepath.Rel(r.root, canonical)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return Resolved{}, fmt.Errorf("%s resolves outside media root: %w", clean, ErrPathTraversal)
	}
	if rel == "." {
		rel = ""
	}
	rel = filepath.ToSlash(rel)
	if hasHiddenSegment(rel) {
		return Resolved{}, fmt.Errorf("%s resolves to hidden path: %w", clean, ErrHiddenFile)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		if isNotFound(err) {
			return Resolved{}, fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return Resolved{}, fmt.Errorf("stat %s: %w", clean, err)
	}

	return Resolved{Rel: rel, Abs: canonical, Info: info}, nil
}

// ResolveArchive splits a composite "archive!/inner" path, resolves the
// archive part and validates the inner part with the same segment rules.
func (r *Resolver) ResolveArchive(composite string) (ArchiveRef, error) {
	decoded := decode(composite)
	idx := strings.Index(decoded, ArchiveMarker)
	if idx < 0 {
		return ArchiveRef{}, fmt.Errorf("%s has no archive marker: %w", composite, ErrNotFound)
	}

	inner, err := CleanRelative(decoded[idx+len(ArchiveMarker):])
	if err != nil {
		observeRejection(err)
		return ArchiveRef{}, err
	}
	if inner == "" {
		return ArchiveRef{}, fmt.Errorf("%s has an empty archive entry: %w", composite, ErrNotFound)
	}

	archive, err := r.Resolve(decoded[:idx])
	if err != nil {
		return ArchiveRef{}, err
	}
	if archive.IsDir() {
		return ArchiveRef{}, fmt.Errorf("%s is a directory: %w", archive.Rel, ErrNotFound)
	}
	return ArchiveRef{Archive: archive, Inner: inner}, nil
}

// Open opens a resolved target through the root handle. Symlinks swapped in
// after validation still cannot leave the media root.
func (r *Resolver) Open(res Resolved) (*os.File, error) {
	name := "."
	if res.Rel != "" {
		name = filepath.FromSlash(res.Rel)
	}
	f, err := r.handle.Open(name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", res.Rel, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", res.Rel, err)
	}
	return f, nil
}

// ReadDir lists a resolved directory through the root handle.
func (r *Resolver) ReadDir(res Resolved) ([]fs.DirEntry, error) {
	name := "."
	if res.Rel != "" {
		name = res.Rel
	}
	return fs.ReadDir(r.handle.FS(), name)
}

// CleanRelative decodes and validates an untrusted relative path and
// returns it as a clean forward-slash path ("" for the root). It performs
// no filesystem access.
func CleanRelative(requested string) (string, error) {
	p := strings.ReplaceAll(decode(requested), `\`, "/")

	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path contains NUL: %w", ErrPathTraversal)
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || hasVolumeName(p) {
		return "", fmt.Errorf("absolute path %q: %w", p, ErrPathTraversal)
	}

	segments := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch {
		case seg == "":
			continue
		case seg == "..":
			return "", fmt.Errorf("parent segment in %q: %w", p, ErrPathTraversal)
		case strings.HasPrefix(seg, "."):
			return "", fmt.Errorf("hidden segment %q: %w", seg, ErrHiddenFile)
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/"), nil
}

// decode percent-decodes repeatedly so that encodings such as %2e%2e and
// %252e%252e are inspected in their final form. Malformed escapes stop
// decoding and the string is then taken literally.
func decode(s string) string {
	for range maxDecodeRounds {
		if !strings.Contains(s, "%") {
			return s
		}
		next, err := url.PathUnescape(s)
		if err != nil || next == s {
			return s
		}
		s = next
	}
	return s
}

func hasVolumeName(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// IsHiddenName reports whether a directory entry name is hidden.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
