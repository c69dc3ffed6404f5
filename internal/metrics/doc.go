// Package metrics provides Prometheus instrumentation for DoggyGallery.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "doggygallery_". Mount promhttp.Handler() on the
// metrics listener to expose them:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Metric Categories
//
//   - HTTP: request counts, latency and in-flight requests
//   - Resolver: path resolution outcomes, including rejected traversal
//     and hidden-file attempts
//   - Scanner and Index: listing latency, index rebuilds and watcher events
//   - Thumbnails: generations by status and cache hits
//   - Streaming: deliveries by media type and refusals by reason
//   - Authentication: attempts by status
//   - Memory: Go runtime heap statistics and backpressure state
//
// The filesystem package cannot import this package without a cycle, so
// resolver outcomes arrive through [NewResolverObserver], registered with
// filesystem.SetObserver at startup.
//
// # Collector
//
// [Collector] periodically gathers library counts from a [StatsProvider]
// and refreshes the runtime memory gauges:
//
//	collector := metrics.NewCollector(index, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Rejected path attempts per minute:
//
//	sum(rate(doggygallery_resolver_requests_total{outcome=~"traversal|hidden"}[5m])) * 60
//
// P95 response time:
//
//	histogram_quantile(0.95, sum(rate(doggygallery_http_request_duration_seconds_bucket[5m])) by (le))
//
// Thumbnail cache hit rate:
//
//	rate(doggygallery_thumbnail_cache_hits_total[5m]) /
//	(rate(doggygallery_thumbnail_cache_hits_total[5m]) + rate(doggygallery_thumbnail_generations_total{status="success"}[5m]))
package metrics
