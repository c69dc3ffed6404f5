package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"doggygallery/internal/archive"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/media"
	"doggygallery/internal/streaming"
)

// Cache lifetimes for generated images.
const (
	thumbnailCacheControl = "public, max-age=86400"
	albumArtCacheControl  = "public, max-age=86400"
)

// Media streams a file from the media root with Range support.
func (h *Handlers) Media(w http.ResponseWriter, r *http.Request) {
	requested := mux.Vars(r)["path"]

	// Reject non-media names before touching the filesystem so that
	// arbitrary files cannot be tested for existence.
	clean, err := filesystem.CleanRelative(requested)
	if err == nil {
		_, _, err = streaming.CheckExtension(clean)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.resolveFile(requested)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.delivery.Serve(w, r, res); err != nil {
		writeError(w, r, err)
	}
}

// MediaArchive streams one entry of an archive addressed as
// "archive!/inner".
func (h *Handlers) MediaArchive(w http.ResponseWriter, r *http.Request) {
	ref, err := h.resolver.ResolveArchive(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, _, err := streaming.CheckExtension(ref.Inner); err != nil {
		writeError(w, r, err)
		return
	}

	entry, data, err := h.extractEntry(ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.delivery.ServeArchiveEntry(w, r, entry.Name, ref.Archive.Info.ModTime(), data); err != nil {
		writeError(w, r, err)
	}
}

// Thumbnail returns a JPEG preview of a raster image.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolveFile(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	thumb, err := h.thumbGen.Get(r.Context(), res)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", thumbnailCacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	if _, err := w.Write(thumb); err != nil {
		logging.Debug("failed to write thumbnail %s: %v", res.Rel, err)
	}
}

// AlbumArt returns the cover picture embedded in an audio file's tags. The
// path may address a track inside an archive.
func (h *Handlers) AlbumArt(w http.ResponseWriter, r *http.Request) {
	pic, err := h.embeddedArt(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", pic.MIMEType)
	w.Header().Set("Cache-Control", albumArtCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(pic.Data)))
	if _, err := w.Write(pic.Data); err != nil {
		logging.Debug("failed to write album art: %v", err)
	}
}

// openTrack returns a seekable reader for an audio file or archived track.
func (h *Handlers) openTrack(p string) (io.ReadSeeker, func(), error) {
	if isArchivePath(p) {
		ref, err := h.resolver.ResolveArchive(p)
		if err != nil {
			return nil, nil, err
		}
		_, data, err := h.extractEntry(ref)
		if err != nil {
			return nil, nil, err
		}
		return bytes.NewReader(data), func() {}, nil
	}

	res, err := h.resolveFile(p)
	if err != nil {
		return nil, nil, err
	}
	f, err := h.resolver.Open(res)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		if err := f.Close(); err != nil {
			logging.Debug("failed to close %s: %v", res.Rel, err)
		}
	}, nil
}

func (h *Handlers) embeddedArt(p string) (*media.Picture, error) {
	rs, done, err := h.openTrack(p)
	if err != nil {
		return nil, err
	}
	defer done()
	return media.EmbeddedArt(rs)
}

// listArchive returns the media entries of a resolved archive file.
func (h *Handlers) listArchive(res filesystem.Resolved) ([]archive.Entry, error) {
	if !archive.IsArchive(res.Rel) {
		return nil, fmt.Errorf("%s: %w", res.Rel, archive.ErrUnsupported)
	}
	f, err := h.resolver.Open(res)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(f)

	entries, err := archive.List(f, res.Info.Size(), res.Rel)
	if err != nil {
		return nil, wrapArchiveErr(res.Rel, err)
	}
	return entries, nil
}

// extractEntry reads one archive entry into memory, bounded by
// max_archive_entry_bytes.
func (h *Handlers) extractEntry(ref filesystem.ArchiveRef) (archive.Entry, []byte, error) {
	if !archive.IsArchive(ref.Archive.Rel) {
		return archive.Entry{}, nil, fmt.Errorf("%s: %w", ref.Archive.Rel, archive.ErrUnsupported)
	}
	f, err := h.resolver.Open(ref.Archive)
	if err != nil {
		return archive.Entry{}, nil, err
	}
	defer closeQuietly(f)

	entry, data, err := archive.Extract(f, ref.Archive.Info.Size(), ref.Archive.Rel, ref.Inner, h.config.MaxArchiveEntryBytes)
	if err != nil {
		return archive.Entry{}, nil, wrapArchiveErr(ref.Archive.Rel, err)
	}
	return entry, data, nil
}

// wrapArchiveErr reports archive failures as I/O errors. The cause stays in
// the chain so sentinel errors still map to their own status.
func wrapArchiveErr(name string, err error) error {
	return &media.IOError{Op: "read archive", Path: name, Err: err}
}

func isArchivePath(p string) bool {
	return strings.Contains(p, filesystem.ArchiveMarker)
}

func closeQuietly(f *os.File) {
	if err := f.Close(); err != nil {
		logging.Debug("failed to close %s: %v", f.Name(), err)
	}
}
