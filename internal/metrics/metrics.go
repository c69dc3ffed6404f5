package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doggygallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Path resolver metrics
var (
	ResolverRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_resolver_requests_total",
			Help: "Path resolutions by outcome (ok, traversal, hidden, not_found, error)",
		},
		[]string{"outcome"},
	)

	ResolverDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doggygallery_resolver_duration_seconds",
			Help:    "Time spent canonicalizing and validating a request path",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)
)

// Scanner metrics
var (
	ScannerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_scanner_operations_total",
			Help: "Total number of catalog operations",
		},
		[]string{"operation", "status"},
	)

	ScannerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doggygallery_scanner_operation_duration_seconds",
			Help:    "Duration of catalog operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	ScannerItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doggygallery_scanner_items_returned",
			Help:    "Number of items returned per listing or search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"operation"},
	)

	ScannerFilesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_scanner_files_scanned_total",
			Help: "Directory entries examined by the scanner",
		},
		[]string{"source"}, // "list", "index"
	)

	ScannerWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_scanner_watcher_events_total",
			Help: "Filesystem events received by the index watcher",
		},
		[]string{"type"},
	)

	ScannerWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doggygallery_scanner_watcher_errors_total",
			Help: "Errors reported by the index watcher",
		},
	)

	ScannerWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_scanner_watched_directories",
			Help: "Number of directories watched for changes",
		},
	)
)

// Index metrics
var (
	IndexRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_index_rebuilds_total",
			Help: "Recursive index rebuilds by status",
		},
		[]string{"status"},
	)

	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doggygallery_index_rebuild_duration_seconds",
			Help:    "Duration of recursive index rebuilds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_index_items",
			Help: "Number of media items in the last index snapshot",
		},
	)

	MediaFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "doggygallery_media_files_total",
			Help: "Media files in the library by type",
		},
		[]string{"type"}, // "image", "video", "audio"
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_thumbnail_generations_total",
			Help: "Thumbnail requests by status",
		},
		[]string{"status"}, // "success", "error", "unsupported"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doggygallery_thumbnail_generation_duration_seconds",
			Help:    "Time to decode, resize and encode a thumbnail",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doggygallery_thumbnail_cache_hits_total",
			Help: "Thumbnails served from the disk cache",
		},
	)
)

// Streaming metrics
var (
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_stream_requests_total",
			Help: "Media delivery requests by media type and result",
		},
		[]string{"type", "result"}, // result: "full", "partial", "not_modified", "rejected"
	)

	StreamRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_stream_rejections_total",
			Help: "Media delivery refusals by reason",
		},
		[]string{"reason"}, // "extension", "content"
	)

	ArchiveExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_archive_extractions_total",
			Help: "Archive entry extractions by status",
		},
		[]string{"status"},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doggygallery_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"}, // "success", "failure", "rate_limited"
	)
)

// Go runtime memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if unlimited)",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_go_memstats_alloc_bytes",
			Help: "Current bytes of allocated heap objects",
		},
	)

	GoMemSysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_go_memstats_sys_bytes",
			Help: "Total bytes of memory obtained from the OS",
		},
	)

	GoGCRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_go_gc_runs",
			Help: "Number of completed GC cycles",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the memory limit (0.0-1.0)",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doggygallery_memory_paused",
			Help: "Whether thumbnail generation is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doggygallery_memory_gc_pauses_total",
			Help: "Times thumbnail generation was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "doggygallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo publishes the running build as a constant 1-valued series.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
