package handlers

import (
	"io/fs"
	"net/http"
	"strings"
)

// staticCacheControl applies to the embedded CSS, JS and images.
const staticCacheControl = "public, max-age=3600"

// Static serves the embedded assets under /static/. Directory listings
// are not served.
func Static(assets fs.FS) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(assets)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", staticCacheControl)
		files.ServeHTTP(w, r)
	})
}
