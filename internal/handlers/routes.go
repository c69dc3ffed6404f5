package handlers

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
)

var readMethods = []string{http.MethodGet, http.MethodHead}

// Router registers every route. Paths are not cleaned by the router so
// that traversal attempts reach the resolver and are rejected there. The
// gallery catch-all is registered last.
func (h *Handlers) Router(static fs.FS) *mux.Router {
	r := mux.NewRouter().SkipClean(true)

	// Health checks and build info
	r.HandleFunc("/health", h.HealthCheck).Methods(readMethods...).Name("health")
	r.HandleFunc("/healthz", h.HealthCheck).Methods(readMethods...).Name("healthz")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(readMethods...).Name("livez")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(readMethods...).Name("readyz")
	r.HandleFunc("/version", h.BuildVersion).Methods(readMethods...).Name("version")

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", h.GetConfig).Methods(readMethods...).Name("api-config")
	api.HandleFunc("/filter", h.Filter).Methods(readMethods...).Name("api-filter")
	api.HandleFunc("/random", h.Random).Methods(readMethods...).Name("api-random")
	api.HandleFunc("/items", h.Items).Methods(readMethods...).Name("api-items")
	api.HandleFunc("/track-info/{path:.+}", h.TrackInfo).Methods(readMethods...).Name("api-track-info")
	api.PathPrefix("/").HandlerFunc(apiNotFound)

	// Assets and media
	r.PathPrefix("/static/").Handler(Static(static)).Methods(readMethods...).Name("static")
	r.HandleFunc("/media/{path:.+}", h.Media).Methods(readMethods...).Name("media")
	r.HandleFunc("/media-archive/{path:.+}", h.MediaArchive).Methods(readMethods...).Name("media-archive")
	r.HandleFunc("/thumbnail/{path:.+}", h.Thumbnail).Methods(readMethods...).Name("thumbnail")
	r.HandleFunc("/album-art/{path:.+}", h.AlbumArt).Methods(readMethods...).Name("album-art")

	// Pages
	r.HandleFunc("/music", h.Music).Methods(readMethods...).Name("music")
	r.HandleFunc("/music/", RedirectMusicSlash).Methods(readMethods...)
	r.HandleFunc("/music/{path:.+}", h.Music).Methods(readMethods...).Name("music-dir")
	r.HandleFunc("/music-archive/{path:.+}", h.MusicArchive).Methods(readMethods...).Name("music-archive")
	r.HandleFunc("/browse", RedirectBrowse).Methods(readMethods...)
	r.HandleFunc("/browse/{path:.*}", RedirectBrowse).Methods(readMethods...)
	r.HandleFunc("/", h.Gallery).Methods(readMethods...).Name("gallery")
	r.HandleFunc("/{path:.+}", h.Gallery).Methods(readMethods...).Name("gallery-dir")

	return r
}

func apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, msgNotFound, http.StatusNotFound)
}
