// Package middleware provides HTTP middleware for the gallery server.
//
// It includes:
//   - Browser hardening headers (CSP, HSTS, frame and sniffing protection)
//   - Request logging in W3C Extended Log Format with an X-Request-ID
//   - Prometheus request metrics with bounded path labels
//   - Response compression with gzip for text responses
//
// The wrappers implement Unwrap so that http.ResponseController reaches the
// connection for write deadlines during media streaming.
package middleware
