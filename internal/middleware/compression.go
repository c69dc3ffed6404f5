package middleware

import (
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"doggygallery/internal/logging"
)

// CompressionConfig controls which responses are gzipped.
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize int
	// Level is a gzip level from gzip.BestSpeed to gzip.BestCompression.
	Level int
	// CompressibleTypes are media types without parameters.
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses pages, assets and JSON of 1 KiB or
// more. Media bodies are already compressed and never qualify.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/json",
			"application/javascript",
			"image/svg+xml",
		},
	}
}

// gzipPools holds a *sync.Pool of writers per level.
var gzipPools sync.Map

func gzipPool(level int) *sync.Pool {
	if p, ok := gzipPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	p, _ := gzipPools.LoadOrStore(level, &sync.Pool{
		New: func() any {
			w, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				w, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return w
		},
	})
	return p.(*sync.Pool)
}

type encoding int

const (
	undecided encoding = iota
	identity
	gzipped
)

// deferredGzip holds the status and the first MinSize bytes back until it
// can tell whether the response qualifies for compression.
type deferredGzip struct {
	http.ResponseWriter
	config  CompressionConfig
	status  int
	pending []byte
	mode    encoding
	gz      *gzip.Writer
}

func newDeferredGzip(w http.ResponseWriter, config CompressionConfig) *deferredGzip {
	return &deferredGzip{
		ResponseWriter: w,
		config:         config,
		status:         http.StatusOK,
		pending:        make([]byte, 0, config.MinSize+1),
	}
}

func (d *deferredGzip) WriteHeader(status int) {
	if d.mode == undecided {
		d.status = status
	}
}

func (d *deferredGzip) Write(p []byte) (int, error) {
	switch d.mode {
	case gzipped:
		return d.gz.Write(p)
	case identity:
		return d.ResponseWriter.Write(p)
	}
	d.pending = append(d.pending, p...)
	if len(d.pending) > d.config.MinSize {
		d.decide()
	}
	return len(p), nil
}

// qualifies reports whether the held response should be compressed.
// Partial, non-200 and already encoded responses pass through.
func (d *deferredGzip) qualifies() bool {
	h := d.Header()
	if len(d.pending) < d.config.MinSize || d.status != http.StatusOK ||
		h.Get("Content-Range") != "" || h.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return slices.Contains(d.config.CompressibleTypes, mediaType)
}

// decide commits the header and flushes the held bytes.
func (d *deferredGzip) decide() {
	if d.mode != undecided {
		return
	}

	held := d.pending
	d.pending = nil

	if !d.qualifies() {
		d.mode = identity
		d.ResponseWriter.WriteHeader(d.status)
		if len(held) > 0 {
			if _, err := d.ResponseWriter.Write(held); err != nil {
				logging.Debug("response write failed: %v", err)
			}
		}
		return
	}

	d.mode = gzipped
	h := d.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")

	d.gz = gzipPool(d.config.Level).Get().(*gzip.Writer)
	d.gz.Reset(d.ResponseWriter)
	d.ResponseWriter.WriteHeader(d.status)
	if _, err := d.gz.Write(held); err != nil {
		logging.Debug("gzip write failed: %v", err)
	}
}

// Close commits anything still held and returns the gzip writer to its pool.
func (d *deferredGzip) Close() error {
	d.decide()
	if d.gz == nil {
		return nil
	}
	err := d.gz.Close()
	gzipPool(d.config.Level).Put(d.gz)
	d.gz = nil
	return err
}

func (d *deferredGzip) Flush() {
	d.decide()
	if d.gz != nil {
		if err := d.gz.Flush(); err != nil {
			logging.Debug("gzip flush failed: %v", err)
		}
	}
	if f, ok := d.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (d *deferredGzip) Unwrap() http.ResponseWriter {
	return d.ResponseWriter
}

// acceptsGzip reports whether the client listed gzip with a non-zero q.
func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// Compression returns middleware that gzips qualifying responses. Ranged
// requests are never compressed since their offsets address identity bytes.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsGzip(r) || r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}

			dg := newDeferredGzip(w, config)
			defer func() {
				if err := dg.Close(); err != nil {
					logging.Debug("failed to close gzip writer: %v", err)
				}
			}()
			next.ServeHTTP(dg, r)
		})
	}
}
