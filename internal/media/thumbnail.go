package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/metrics"
)

// ErrThumbnailUnsupported is returned for files that have no thumbnail:
// directories, video, audio and SVG.
var ErrThumbnailUnsupported = errors.New("thumbnail not supported for this file")

// Gate delays memory-intensive work. memory.Monitor implements it.
type Gate interface {
	Wait(ctx context.Context) error
}

// ThumbnailGenerator renders JPEG thumbnails of raster images, optionally
// caching them on disk.
type ThumbnailGenerator struct {
	resolver *filesystem.Resolver
	cacheDir string
	size     int
	sem      chan struct{}
	gate     Gate
}

// NewThumbnailGenerator creates a generator. An empty cacheDir disables the
// disk cache; workers bounds concurrent decodes.
func NewThumbnailGenerator(resolver *filesystem.Resolver, cacheDir string, size, workers int) *ThumbnailGenerator {
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o750); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir, caching disabled: %v", err)
			cacheDir = ""
		}
	}
	logging.Debug("ThumbnailGenerator: size %d, workers %d, cache dir %q", size, workers, cacheDir)
	return &ThumbnailGenerator{
		resolver: resolver,
		cacheDir: cacheDir,
		size:     size,
		sem:      make(chan struct{}, max(1, workers)),
	}
}

// SetGate makes every decode wait on g first.
func (t *ThumbnailGenerator) SetGate(g Gate) {
	t.gate = g
}

// Size returns the bounding box edge of generated thumbnails.
func (t *ThumbnailGenerator) Size() int {
	return t.size
}

// Get returns the JPEG thumbnail for a resolved image.
func (t *ThumbnailGenerator) Get(ctx context.Context, res filesystem.Resolved) ([]byte, error) {
	if res.IsDir() || !mediatypes.IsRasterImage(mediatypes.Ext(res.Rel)) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("unsupported").Inc()
		return nil, fmt.Errorf("%s: %w", res.Rel, ErrThumbnailUnsupported)
	}

	cachePath := t.cachePath(res)
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil {
			metrics.ThumbnailCacheHits.Inc()
			return data, nil
		}
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if t.gate != nil {
		if err := t.gate.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	data, err := t.generate(res)
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()

	if cachePath != "" {
		if err := os.WriteFile(cachePath, data, 0o640); err != nil {
			logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		}
	}
	return data, nil
}

func (t *ThumbnailGenerator) generate(res filesystem.Resolved) ([]byte, error) {
	f, err := t.resolver.Open(res)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("failed to close %s: %v", res.Rel, err)
		}
	}()

	img, err := LoadImageConstrained(f, res.Rel, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", res.Rel, err)
	}

	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// cachePath keys the cache on path, size, mtime and thumbnail size so that
// edited files get fresh thumbnails.
func (t *ThumbnailGenerator) cachePath(res filesystem.Resolved) string {
	if t.cacheDir == "" {
		return ""
	}
	key := fmt.Sprintf("%s|%d|%d|%d", res.Rel, res.Info.Size(), res.Info.ModTime().UnixNano(), t.size)
	return filepath.Join(t.cacheDir, fmt.Sprintf("%x.jpg", md5.Sum([]byte(key))))
}
