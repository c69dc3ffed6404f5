package streaming

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"doggygallery/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout means a single write, or the whole stream, ran past
	// its limit. Usually the client is reading too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context ended before the stream did.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled means the stream was closed locally or went idle.
	ErrStreamCanceled = errors.New("stream canceled")
)

const progressInterval = 1 << 20

// TimeoutWriterConfig bounds how long a stream may stall.
type TimeoutWriterConfig struct {
	// WriteTimeout bounds a single write to the client.
	WriteTimeout time.Duration
	// IdleTimeout cancels the stream when no write succeeds for this long.
	IdleTimeout time.Duration
	// MaxDuration caps the whole stream; 0 is unlimited.
	MaxDuration time.Duration
	// ChunkSize splits large writes and flushes between chunks; 0 disables.
	ChunkSize int
	// OnProgress is called each time another MiB has been written.
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns the limits used for media delivery.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter is an http.ResponseWriter that stops a stream when the
// client stalls, so http.ServeContent can write through it without
// pinning a goroutine on a dead connection.
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	config TimeoutWriterConfig

	parent context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc
	idle   *time.Timer

	start      time.Time
	deadlines  bool
	status     atomic.Int32
	written    atomic.Int64
	nextReport int64
}

// NewTimeoutWriter wraps w. Call Close when the stream ends.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	streamCtx, cancel := context.WithCancelCause(ctx)
	tw := &TimeoutWriter{
		w:          w,
		rc:         http.NewResponseController(w),
		config:     config,
		parent:     ctx,
		ctx:        streamCtx,
		cancel:     cancel,
		start:      time.Now(),
		deadlines:  config.WriteTimeout > 0,
		nextReport: progressInterval,
	}
	if config.IdleTimeout > 0 {
		tw.idle = time.AfterFunc(config.IdleTimeout, func() {
			logging.Warn("Stream idle for %v, canceling", config.IdleTimeout)
			cancel(ErrStreamCanceled)
		})
	}
	return tw
}

// Header returns the underlying header map.
func (tw *TimeoutWriter) Header() http.Header {
	return tw.w.Header()
}

// WriteHeader forwards the status code and remembers the first one.
func (tw *TimeoutWriter) WriteHeader(statusCode int) {
	tw.status.CompareAndSwap(0, int32(statusCode))
	tw.w.WriteHeader(statusCode)
}

// Status returns the status sent so far: the explicit one, 200 if only a
// body was written, or 0 if nothing was.
func (tw *TimeoutWriter) Status() int {
	if s := tw.status.Load(); s != 0 {
		return int(s)
	}
	if tw.written.Load() > 0 {
		return http.StatusOK
	}
	return 0
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (tw *TimeoutWriter) Unwrap() http.ResponseWriter {
	return tw.w
}

func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	if err := tw.check(); err != nil {
		return 0, err
	}
	if tw.config.ChunkSize <= 0 || len(p) <= tw.config.ChunkSize {
		return tw.writeOnce(p)
	}

	total := 0
	for chunk := range sliceChunks(p, tw.config.ChunkSize) {
		if err := tw.check(); err != nil {
			return total, err
		}
		n, err := tw.writeOnce(chunk)
		total += n
		if err != nil {
			return total, err
		}
		if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return total, err
		}
	}
	return total, nil
}

func sliceChunks(p []byte, size int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(p) > 0 {
			n := min(len(p), size)
			if !yield(p[:n]) {
				return
			}
			p = p[n:]
		}
	}
}

// check reports why the stream may not continue, if it may not.
func (tw *TimeoutWriter) check() error {
	if tw.ctx.Err() != nil {
		if tw.parent.Err() != nil {
			return ErrClientGone
		}
		return context.Cause(tw.ctx)
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
		return ErrWriteTimeout
	}
	return nil
}

// writeOnce writes p under a connection write deadline when the writer
// supports one.
func (tw *TimeoutWriter) writeOnce(p []byte) (int, error) {
	if tw.deadlines {
		err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
		if errors.Is(err, http.ErrNotSupported) {
			tw.deadlines = false
		} else if err != nil {
			return 0, err
		}
	}

	n, err := tw.w.Write(p)
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		tw.cancel(ErrWriteTimeout)
		return n, ErrWriteTimeout
	case err != nil && tw.parent.Err() != nil:
		return n, ErrClientGone
	case err != nil:
		return n, err
	}

	if tw.idle != nil {
		tw.idle.Reset(tw.config.IdleTimeout)
	}
	total := tw.written.Add(int64(n))
	if tw.config.OnProgress != nil && total >= tw.nextReport {
		tw.nextReport = total - total%progressInterval + progressInterval
		tw.config.OnProgress(total, time.Since(tw.start))
	}
	return n, nil
}

// Close ends the stream. Later writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	if tw.idle != nil {
		tw.idle.Stop()
	}
	tw.cancel(ErrStreamCanceled)
	return nil
}

// Stats returns the bytes written and the time since the stream began.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	return tw.written.Load(), time.Since(tw.start)
}
