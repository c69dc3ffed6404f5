package audioplayer

import (
	"context"
	"strings"
)

// ArchiveMarker separates an archive path from the entry path inside it.
const ArchiveMarker = "!/"

// PlaceholderArt is shown when no album art can be found.
const PlaceholderArt = "/static/img/album-placeholder.svg"

// ArtFilenames are tried in order in the track's directory.
var ArtFilenames = []string{
	"cover.jpg",
	"cover.png",
	"folder.jpg",
	"folder.png",
	"album.jpg",
	"album.png",
}

// ArtCandidates returns the candidate art URLs for a track, in try order. For a
// track inside an archive only the directory inside the archive is
// replaced; the archive prefix is kept.
func ArtCandidates(trackSrc string) []string {
	prefix, inner := "", trackSrc
	if i := strings.Index(trackSrc, ArchiveMarker); i >= 0 {
		prefix = trackSrc[:i+len(ArchiveMarker)]
		inner = trackSrc[i+len(ArchiveMarker):]
	}

	dir := ""
	if j := strings.LastIndex(inner, "/"); j >= 0 {
		dir = inner[:j+1]
	}

	out := make([]string, len(ArtFilenames))
	for i, name := range ArtFilenames {
		out[i] = prefix + dir + name
	}
	return out
}

// ArtCheck reports whether url can be loaded as an image.
type ArtCheck func(ctx context.Context, url string) bool

// ResolveArt tries candidates one at a time and returns the first that
// loads successfully, or PlaceholderArt. At most one check is in flight.
func ResolveArt(ctx context.Context, candidates []string, check ArtCheck) string {
	for _, url := range candidates {
		if ctx.Err() != nil {
			break
		}
		if check(ctx, url) {
			return url
		}
	}
	return PlaceholderArt
}

// TrackInfo describes an audio track for the player UI.
type TrackInfo struct {
	Path           string   `json:"path"`
	Title          string   `json:"title,omitempty"`
	Artist         string   `json:"artist,omitempty"`
	Album          string   `json:"album,omitempty"`
	HasEmbeddedArt bool     `json:"hasEmbeddedArt"`
	AlbumArt       string   `json:"albumArt"`
	ArtCandidates  []string `json:"artCandidates"`
}
