package streaming

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/metrics"
)

// ErrUnsupportedMediaType is returned for files that are not allowlisted
// media or whose content does not match their extension.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// SVGContentSecurityPolicy keeps scripts embedded in SVG files inert.
const SVGContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// Config controls media delivery.
type Config struct {
	// ValidateContent enables magic-byte checks against the extension.
	ValidateContent bool
	Writer          TimeoutWriterConfig
}

// Delivery streams resolved media files to HTTP clients.
type Delivery struct {
	resolver *filesystem.Resolver
	cfg      Config
}

// NewDelivery creates a Delivery that opens files through resolver.
func NewDelivery(resolver *filesystem.Resolver, cfg Config) *Delivery {
	return &Delivery{resolver: resolver, cfg: cfg}
}

// CheckExtension classifies name by extension and returns its content type.
// Anything other than image, video or audio is ErrUnsupportedMediaType.
func CheckExtension(name string) (mediatypes.FileType, string, error) {
	typ := mediatypes.FileTypeForName(name)
	switch typ {
	case mediatypes.FileTypeImage, mediatypes.FileTypeVideo, mediatypes.FileTypeAudio:
		return typ, mediatypes.GetMimeType(mediatypes.Ext(name)), nil
	}
	metrics.StreamRejectionsTotal.WithLabelValues("extension").Inc()
	return typ, "", fmt.Errorf("%s: %w", name, ErrUnsupportedMediaType)
}

// Serve writes the file with Range support. The extension is checked before
// the file is opened.
func (d *Delivery) Serve(w http.ResponseWriter, r *http.Request, res filesystem.Resolved) error {
	typ, contentType, err := CheckExtension(res.Rel)
	if err != nil {
		return err
	}
	if res.IsDir() {
		return fmt.Errorf("%s: %w", res.Rel, filesystem.ErrNotFound)
	}

	f, err := d.resolver.Open(res)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("failed to close %s: %v", res.Rel, err)
		}
	}()

	if d.cfg.ValidateContent {
		detected, err := mimetype.DetectReader(f)
		if err != nil {
			return fmt.Errorf("sniff %s: %w", res.Rel, err)
		}
		if err := checkContent(res.Rel, typ, detected); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind %s: %w", res.Rel, err)
		}
	}

	setMediaHeaders(w.Header(), res.Name(), contentType)
	d.stream(w, r, res.Name(), res.Info.ModTime(), typ, f)
	return nil
}

// ServeArchiveEntry writes an extracted archive entry with the same header
// policy as Serve.
func (d *Delivery) ServeArchiveEntry(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, data []byte) error {
	typ, contentType, err := CheckExtension(name)
	if err != nil {
		return err
	}

	if d.cfg.ValidateContent {
		if err := checkContent(name, typ, mimetype.Detect(data)); err != nil {
			return err
		}
	}

	setMediaHeaders(w.Header(), name, contentType)
	d.stream(w, r, name, modTime, typ, bytes.NewReader(data))
	return nil
}

func (d *Delivery) stream(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, typ mediatypes.FileType, content io.ReadSeeker) {
	tw := NewTimeoutWriter(r.Context(), w, d.cfg.Writer)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	http.ServeContent(tw, r, name, modTime, content)

	status := tw.Status()
	metrics.StreamRequestsTotal.WithLabelValues(string(typ), streamResult(status)).Inc()

	written, duration := tw.Stats()
	logging.Debug("Streamed %s: status %d, %d bytes in %v", name, status, written, duration)
}

func streamResult(status int) string {
	switch status {
	case http.StatusOK:
		return "full"
	case http.StatusPartialContent:
		return "partial"
	case http.StatusNotModified:
		return "not_modified"
	default:
		return "rejected"
	}
}

func setMediaHeaders(h http.Header, name, contentType string) {
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "public, max-age=3600")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Accept-Ranges", "bytes")
	if mediatypes.Ext(name) == ".svg" {
		h.Set("Content-Security-Policy", SVGContentSecurityPolicy)
		h.Set("Content-Disposition", "inline; filename="+strconv.Quote(name))
	}
}

// checkContent rejects files whose sniffed type does not belong to the
// category implied by their extension. Audio and video containers overlap
// (webm, ogg, mp4), so either category is accepted for both.
func checkContent(name string, typ mediatypes.FileType, detected *mimetype.MIME) error {
	svg := mediatypes.Ext(name) == ".svg"
	for m := detected; m != nil; m = m.Parent() {
		if contentMatches(m, typ, svg) {
			return nil
		}
	}
	metrics.StreamRejectionsTotal.WithLabelValues("content").Inc()
	logging.Warn("Content of %s detected as %s, expected %s", name, detected.String(), typ)
	return fmt.Errorf("%s: content is %s: %w", name, detected.String(), ErrUnsupportedMediaType)
}

func contentMatches(m *mimetype.MIME, typ mediatypes.FileType, svg bool) bool {
	mt := m.String()
	switch {
	case svg:
		return m.Is("image/svg+xml") || m.Is("text/xml") || m.Is("application/xml")
	case typ == mediatypes.FileTypeImage:
		return strings.HasPrefix(mt, "image/") && !m.Is("image/svg+xml")
	default:
		return strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") || m.Is("application/ogg")
	}
}
