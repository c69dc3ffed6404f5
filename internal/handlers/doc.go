// Package handlers provides the HTTP surface of the gallery.
//
// It includes handlers for:
//   - HTML gallery and music pages rendered from the web templates
//   - Media streaming, archive entries, thumbnails and embedded album art
//   - The JSON API used by the client script (config, filter, random,
//     items, track info)
//   - Health checks and build information
//
// All handler errors go through writeError, which maps the domain errors
// of the filesystem, media, streaming and archive packages to status codes.
package handlers
