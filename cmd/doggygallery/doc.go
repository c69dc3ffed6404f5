// Package main provides the entry point for DoggyGallery.
//
// DoggyGallery is a self-hosted HTTPS gallery for a directory of images,
// videos and music. It lists directories as paginated grids, plays media in
// a lightbox with shuffle and play-all, streams audio with album art, and
// reads tracks straight out of zip and tar archives.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from the environment or the
//     container limit
//  2. Configuration Loading: flags, DOGGYGALLERY_* environment, config file
//  3. Component Initialization:
//     - Resolver: opens the media root with os.Root
//     - Scanner and index: directory listings and the recursive catalog,
//     invalidated by an fsnotify watcher
//     - Thumbnail Generator: bounded workers gated by the memory monitor
//     - Delivery: Range-aware streaming with magic-byte validation
//  4. HTTPS Server Setup: routes, middleware, TLS 1.3 with HTTP/2
//  5. Graceful Shutdown on SIGINT/SIGTERM
//
// # HTTP Servers
//
//  1. Main server (default port 7833, HTTPS only): pages, media, JSON API
//     and health checks. Everything except the health checks requires Basic Auth.
//  2. Metrics server (default port 9090, optional, plain HTTP): /metrics.
//
// # Middleware
//
// Outermost first: security headers, W3C access log with request IDs,
// request metrics, Basic Auth with per-client failure limiting, gzip.
//
// # Graceful Shutdown
//
//  1. Stop the filesystem watcher
//  2. Shut down the HTTPS server (30s timeout)
//  3. Shut down the metrics server
//  4. Stop the metrics collector and memory monitor
//
// # Usage
//
//	doggygallery --media-dir /srv/media --username admin \
//	    --password "$(hashpw)" --cert cert.pem --key key.pem
//
//	doggygallery --media-dir ./media --username admin --password woof \
//	    --self-signed-certs-on-the-fly
//
// See [doggygallery/internal/startup] for every configuration key.
package main
