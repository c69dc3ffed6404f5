package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"doggygallery/internal/archive"
	"doggygallery/internal/audioplayer"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/logging"
	"doggygallery/internal/media"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/startup"
	"doggygallery/internal/tlsconfig"
	"doggygallery/web"
)

// ConfigResponse describes the server to the client script.
type ConfigResponse struct {
	AppName         string   `json:"appName"`
	EmojiPrefix     string   `json:"emojiPrefix"`
	TLSVersion      string   `json:"tlsVersion"`
	HTTPVersion     string   `json:"httpVersion"`
	ImageExtensions []string `json:"imageExtensions"`
	VideoExtensions []string `json:"videoExtensions"`
	AudioExtensions []string `json:"audioExtensions"`
	DefaultPerPage  int      `json:"defaultPerPage"`
	MaxPerPage      int      `json:"maxPerPage"`
	FilterRecursive bool     `json:"filterRecursive"`
	Version         string   `json:"version"`
}

// RandomResponse is one randomly chosen media item.
type RandomResponse struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// GetConfig returns the public server configuration.
func (h *Handlers) GetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSONOK(w, ConfigResponse{
		AppName:         startup.AppName,
		EmojiPrefix:     startup.EmojiPrefix,
		TLSVersion:      tlsconfig.Version,
		HTTPVersion:     tlsconfig.HTTPVersion,
		ImageExtensions: mediatypes.Extensions(mediatypes.ImageExtensions),
		VideoExtensions: mediatypes.Extensions(mediatypes.VideoExtensions),
		AudioExtensions: mediatypes.Extensions(mediatypes.AudioExtensions),
		DefaultPerPage:  h.scanner.DefaultPerPage(),
		MaxPerPage:      h.scanner.MaxPerPage(),
		FilterRecursive: h.config.FilterRecursive,
		Version:         startup.Version,
	})
}

// Filter searches media under ?path= and returns one page of matches.
func (h *Handlers) Filter(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	listing, err := h.scanner.Search(r.Context(), r.URL.Query().Get("path"), media.ListOptions{
		Filter:    filter,
		Page:      queryInt(r, "page", 1),
		PerPage:   queryInt(r, "per_page", h.scanner.DefaultPerPage()),
		Recursive: queryBool(r, "recursive", h.config.FilterRecursive),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONOK(w, listing)
}

// Random returns a random media item, different from ?exclude= when
// possible.
func (h *Handlers) Random(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exclude := ""
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		// An invalid exclude only means nothing is excluded.
		if clean, err := filesystem.CleanRelative(raw); err == nil {
			exclude = clean
		}
	}

	item, err := h.scanner.Index().Random(r.Context(), filter, exclude)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONOK(w, RandomResponse{
		Path: item.Path,
		Name: item.Name,
		Type: string(item.Type),
		URL:  mediaURL(item.Path),
	})
}

// Items returns the viewer playlist for one page of a directory.
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	listing, err := h.scanner.List(r.Context(), r.URL.Query().Get("path"), media.ListOptions{
		Filter:  filter,
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", h.scanner.DefaultPerPage()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONOK(w, itemsFromListing(listing.Entries))
}

// TrackInfo returns tags and album art for an audio track.
func (h *Handlers) TrackInfo(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]

	src, err := h.trackSrc(p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rs, done, err := h.openTrack(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tags, tagErr := media.ReadTrackTags(rs)
	done()
	if tagErr != nil {
		logging.Debug("No tags for %s: %v", p, tagErr)
	}

	info := audioplayer.TrackInfo{
		Path:           p,
		Title:          tags.Title,
		Artist:         tags.Artist,
		Album:          tags.Album,
		HasEmbeddedArt: tags.Picture != nil,
		ArtCandidates:  audioplayer.ArtCandidates(src),
	}
	if info.HasEmbeddedArt {
		info.AlbumArt = "/album-art/" + web.EscapePath(p)
	} else {
		info.AlbumArt = audioplayer.ResolveArt(r.Context(), info.ArtCandidates, h.artCheck())
	}
	writeJSONOK(w, info)
}

// trackSrc validates p as an audio track and returns its media URL.
func (h *Handlers) trackSrc(p string) (string, error) {
	if isArchivePath(p) {
		ref, err := h.resolver.ResolveArchive(p)
		if err != nil {
			return "", err
		}
		if mediatypes.FileTypeForName(ref.Inner) != mediatypes.FileTypeAudio {
			return "", unsupported(ref.Inner)
		}
		return web.EntryURL(ref.Archive.Rel, ref.Inner), nil
	}

	clean, err := filesystem.CleanRelative(p)
	if err != nil {
		return "", err
	}
	if mediatypes.FileTypeForName(clean) != mediatypes.FileTypeAudio {
		return "", unsupported(clean)
	}
	return mediaURL(clean), nil
}

// artCheck checks candidate art URLs against the media root without
// reading image data. Archive listings are reused between candidates.
func (h *Handlers) artCheck() audioplayer.ArtCheck {
	listings := make(map[string]map[string]bool)

	return func(_ context.Context, u string) bool {
		switch {
		case strings.HasPrefix(u, "/media-archive/"):
			composite, err := url.PathUnescape(strings.TrimPrefix(u, "/media-archive/"))
			if err != nil {
				return false
			}
			ref, err := h.resolver.ResolveArchive(composite)
			if err != nil {
				return false
			}
			names, ok := listings[ref.Archive.Rel]
			if !ok {
				entries, err := h.listArchive(ref.Archive)
				if err != nil {
					logging.Debug("Art lookup could not list %s: %v", ref.Archive.Rel, err)
				}
				names = entryIndex(entries)
				listings[ref.Archive.Rel] = names
			}
			return names[ref.Inner]
		case strings.HasPrefix(u, "/media/"):
			rel, err := url.PathUnescape(strings.TrimPrefix(u, "/media/"))
			if err != nil {
				return false
			}
			res, err := h.resolver.Resolve(rel)
			return err == nil && !res.IsDir()
		default:
			return false
		}
	}
}

func entryIndex(entries []archive.Entry) map[string]bool {
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Type == mediatypes.FileTypeImage {
			names[e.Path] = true
		}
	}
	return names
}
