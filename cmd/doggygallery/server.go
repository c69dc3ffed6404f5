package main

import (
	"net/http"
	"time"

	"doggygallery/internal/auth"
	"doggygallery/internal/middleware"
	"doggygallery/internal/startup"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

// healthPaths are served without credentials so orchestrators can poll them.
var healthPaths = []string{"/health", "/healthz", "/livez", "/readyz"}

// newHandlerChain wraps the router, outermost first: security headers,
// access log, request metrics, Basic Auth, compression.
func newHandlerChain(config *startup.Config, authenticator *auth.Authenticator, router http.Handler) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = authenticator.Middleware(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	return middleware.SecurityHeaders(handler)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // streams can run for hours
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}
