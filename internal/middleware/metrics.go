package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"doggygallery/internal/metrics"
)

// MetricsConfig lists the paths the metrics middleware leaves uncounted.
type MetricsConfig struct {
	SkipPaths []string
}

// DefaultMetricsConfig skips the scrape endpoint and the health checks.
func DefaultMetricsConfig() MetricsConfig {
	skip := []string{"/metrics"}
	for p := range healthPaths {
		skip = append(skip, p)
	}
	return MetricsConfig{SkipPaths: skip}
}

// Metrics returns middleware that counts requests and observes their
// latency, labeled by route pattern rather than raw path.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rec := newStatusRecorder(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// mediaRoutes are first path segments followed by a media path.
var mediaRoutes = map[string]bool{
	"media":         true,
	"media-archive": true,
	"thumbnail":     true,
	"album-art":     true,
	"music":         true,
	"music-archive": true,
	"static":        true,
	"browse":        true,
}

// normalizePath maps a request path to a bounded set of route labels.
// Media paths collapse to {path}; gallery directories live at the root.
func normalizePath(path string) string {
	if path == "/" || path == "/version" || healthPaths[path] {
		return path
	}

	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch {
	case first == "api" && strings.HasPrefix(rest, "track-info/"):
		return "/api/track-info/{path}"
	case first == "api":
		return path
	case mediaRoutes[first] && rest == "":
		return "/" + first
	case mediaRoutes[first]:
		return "/" + first + "/{path}"
	}
	return "/{path}"
}
