// Package tlsconfig builds the TLS 1.3 server configuration.
//
// Certificates come either from PEM files or are generated in memory at
// startup for localhost use. Configure attaches the configuration to an
// http.Server and enables HTTP/2 on it.
package tlsconfig
