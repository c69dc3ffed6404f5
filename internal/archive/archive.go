package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"doggygallery/internal/mediatypes"
)

var (
	// ErrUnsupported is returned for files that are not a known archive type.
	ErrUnsupported = errors.New("unsupported archive format")
	// ErrEntryNotFound is returned when an archive has no such media entry.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrEntryTooLarge is returned when an entry exceeds the extraction limit.
	ErrEntryTooLarge = errors.New("archive entry too large")
)

// Entry is a media file stored inside an archive.
type Entry struct {
	Name string              `json:"name"`
	Path string              `json:"path"`
	Type mediatypes.FileType `json:"type"`
	Size int64               `json:"size"`
}

type format int

const (
	formatNone format = iota
	formatZip
	formatTar
	formatTarGz
	formatTarBz2
)

func detect(name string) format {
	switch mediatypes.ArchiveSuffix(name) {
	case ".zip":
		return formatZip
	case ".tar":
		return formatTar
	case ".tar.gz", ".tgz":
		return formatTarGz
	case ".tar.bz2", ".tbz2":
		return formatTarBz2
	default:
		return formatNone
	}
}

// IsArchive reports whether name has a supported archive suffix.
func IsArchive(name string) bool {
	return detect(name) != formatNone
}

// visit calls fn for every media entry in the archive until fn returns
// false. The reader passed to fn is only valid during the call.
func visit(r io.ReaderAt, size int64, name string, fn func(e Entry, open func() (io.Reader, error)) (bool, error)) error {
	switch detect(name) {
	case formatZip:
		return visitZip(r, size, fn)
	case formatTar:
		return visitTar(io.NewSectionReader(r, 0, size), fn)
	case formatTarGz:
		zr, err := gzip.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return visitTar(zr, fn)
	case formatTarBz2:
		return visitTar(bzip2.NewReader(io.NewSectionReader(r, 0, size)), fn)
	default:
		return fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
}

func visitZip(r io.ReaderAt, size int64, fn func(Entry, func() (io.Reader, error)) (bool, error)) error {
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entry, ok := mediaEntry(f.Name, int64(f.UncompressedSize64))
		if !ok {
			continue
		}

		var rc io.ReadCloser
		open := func() (io.Reader, error) {
			var err error
			rc, err = f.Open()
			return rc, err
		}
		more, err := fn(entry, open)
		if rc != nil {
			_ = rc.Close()
		}
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func visitTar(r io.Reader, fn func(Entry, func() (io.Reader, error)) (bool, error)) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		entry, ok := mediaEntry(hdr.Name, hdr.Size)
		if !ok {
			continue
		}
		more, err := fn(entry, func() (io.Reader, error) { return tr, nil })
		if err != nil || !more {
			return err
		}
	}
}

// mediaEntry normalizes an entry name and keeps it only if it is a
// non-hidden media file without parent references.
func mediaEntry(raw string, size int64) (Entry, bool) {
	clean, ok := cleanEntryName(raw)
	if !ok {
		return Entry{}, false
	}
	typ := mediatypes.GetFileType(mediatypes.Ext(clean))
	if typ == mediatypes.FileTypeOther {
		return Entry{}, false
	}
	return Entry{Name: path.Base(clean), Path: clean, Type: typ, Size: size}, true
}

func cleanEntryName(raw string) (string, bool) {
	name := strings.ReplaceAll(raw, `\`, "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	return path.Clean(name), true
}

// List returns the media entries of an archive sorted by name.
func List(r io.ReaderAt, size int64, name string) ([]Entry, error) {
	entries := []Entry{}
	err := visit(r, size, name, func(e Entry, _ func() (io.Reader, error)) (bool, error) {
		entries = append(entries, e)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// ContainsAudio reports whether an archive holds at least one audio entry.
// It stops reading at the first one.
func ContainsAudio(r io.ReaderAt, size int64, name string) (bool, error) {
	found := false
	err := visit(r, size, name, func(e Entry, _ func() (io.Reader, error)) (bool, error) {
		if e.Type == mediatypes.FileTypeAudio {
			found = true
			return false, nil
		}
		return true, nil
	})
	return found, err
}

// Extract reads the media entry at inner into memory. Entries larger than
// maxBytes are refused.
func Extract(r io.ReaderAt, size int64, name, inner string, maxBytes int64) (Entry, []byte, error) {
	var (
		found Entry
		data  []byte
		hit   bool
	)
	err := visit(r, size, name, func(e Entry, open func() (io.Reader, error)) (bool, error) {
		if e.Path != inner {
			return true, nil
		}
		hit = true
		found = e
		if maxBytes > 0 && e.Size > maxBytes {
			return false, fmt.Errorf("%s (%d bytes): %w", inner, e.Size, ErrEntryTooLarge)
		}
		rd, err := open()
		if err != nil {
			return false, fmt.Errorf("open entry %s: %w", inner, err)
		}
		if maxBytes > 0 {
			rd = io.LimitReader(rd, maxBytes+1)
		}
		data, err = io.ReadAll(rd)
		if err != nil {
			return false, fmt.Errorf("read entry %s: %w", inner, err)
		}
		if maxBytes > 0 && int64(len(data)) > maxBytes {
			return false, fmt.Errorf("%s: %w", inner, ErrEntryTooLarge)
		}
		return false, nil
	})
	if err != nil {
		return Entry{}, nil, err
	}
	if !hit {
		return Entry{}, nil, fmt.Errorf("%s: %w", inner, ErrEntryNotFound)
	}
	return found, data, nil
}
