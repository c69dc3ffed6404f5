package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const (
	softwareDirective = "#Software: DoggyGallery/1.0"
	fieldsDirective   = "#Fields: date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(Content-Encoding) cs(User-Agent) cs(Referer) x-request-id"
)

// healthPaths are the liveness and readiness endpoints.
var healthPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// LoggingConfig selects which requests reach the access log.
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
	// SkipExtensions are dropped unless LogStaticFiles is set.
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs everything except stylesheets, scripts and fonts.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipExtensions:  []string{".css", ".js", ".ico", ".woff", ".woff2", ".ttf"},
		LogHealthChecks: true,
	}
}

func (c LoggingConfig) skips(path string) bool {
	for _, prefix := range c.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if healthPaths[path] {
		return !c.LogHealthChecks
	}
	if c.LogStaticFiles {
		return false
	}
	lower := strings.ToLower(path)
	for _, ext := range c.SkipExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// accessEntry is one line of the W3C extended log.
type accessEntry struct {
	when      time.Time
	clientIP  string
	method    string
	uriStem   string
	uriQuery  string
	status    int
	bytes     int64
	elapsed   time.Duration
	encoding  string
	userAgent string
	referer   string
	requestID string
}

func newAccessEntry(r *http.Request, rec *statusRecorder, requestID string, elapsed time.Duration) accessEntry {
	return accessEntry{
		when:      time.Now().UTC(),
		clientIP:  sanitizeLogField(getClientIP(r)),
		method:    sanitizeLogField(r.Method),
		uriStem:   sanitizeLogField(r.URL.Path),
		uriQuery:  sanitizeLogField(r.URL.RawQuery),
		status:    rec.status,
		bytes:     rec.bytes,
		elapsed:   elapsed,
		encoding:  rec.Header().Get("Content-Encoding"),
		userAgent: quoteW3C(sanitizeLogField(r.Header.Get("User-Agent"))),
		referer:   sanitizeLogField(r.Header.Get("Referer")),
		requestID: requestID,
	}
}

// String renders the entry in the field order of fieldsDirective. Empty
// fields become "-".
func (e accessEntry) String() string {
	fields := []string{
		e.when.Format("2006-01-02"),
		e.when.Format("15:04:05"),
		e.clientIP,
		e.method,
		e.uriStem,
		e.uriQuery,
		strconv.Itoa(e.status),
		strconv.FormatInt(e.bytes, 10),
		strconv.FormatInt(e.elapsed.Milliseconds(), 10),
		e.encoding,
		e.userAgent,
		e.referer,
		e.requestID,
	}
	for i, f := range fields {
		if f == "" {
			fields[i] = "-"
		}
	}
	return strings.Join(fields, " ")
}

// Logger returns middleware that writes a W3C extended access log through
// the standard logger. Every response carries an X-Request-ID: a valid
// incoming UUID is kept, anything else is replaced.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	var directives sync.Once

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			if config.skips(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			entry := newAccessEntry(r, rec, requestID, time.Since(start))

			directives.Do(func() {
				log.Println(softwareDirective)
				log.Println(fieldsDirective)
			})
			//nolint:gosec // G706: every request-controlled field passed through sanitizeLogField.
			log.Println(entry.String())
		})
	}
}

// sanitizeLogField turns CR and LF into spaces and drops NUL, ESC and the
// other control characters except tab.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20:
			return -1
		}
		return r
	}, s)
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// quoteW3C wraps values containing blanks or quotes in double quotes,
// doubling embedded quotes.
func quoteW3C(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
