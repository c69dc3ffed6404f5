package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"doggygallery/internal/archive"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/media"
	"doggygallery/internal/streaming"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("invalid request")

// Response bodies. They never echo the requested path.
const (
	msgNotFound    = "Not found"
	msgForbidden   = "Forbidden"
	msgBadRequest  = "Bad request"
	msgTooLarge    = "Entry too large"
	msgUnavailable = "Service unavailable"
	msgInternal    = "Internal server error"
)

// statusFor maps a domain error to its HTTP status and public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, filesystem.ErrPathTraversal),
		errors.Is(err, filesystem.ErrHiddenFile),
		errors.Is(err, streaming.ErrUnsupportedMediaType),
		errors.Is(err, archive.ErrUnsupported):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, filesystem.ErrNotFound),
		errors.Is(err, media.ErrNotADirectory),
		errors.Is(err, media.ErrNoMatch),
		errors.Is(err, media.ErrNoEmbeddedArt),
		errors.Is(err, media.ErrThumbnailUnsupported),
		errors.Is(err, archive.ErrEntryNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, archive.ErrEntryTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError is the single place where handler errors become responses.
// API routes get a JSON body; everything else gets plain text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	case status == http.StatusForbidden:
		logging.Warn("Rejected %s %s: %v", r.Method, r.URL.Path, err)
	default:
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}

	if isAPIRequest(r) {
		writeJSONError(w, msg, status)
		return
	}
	http.Error(w, msg, status)
}

func unsupported(name string) error {
	return fmt.Errorf("%s: %w", name, streaming.ErrUnsupportedMediaType)
}
