package media

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dhowden/tag"

	"doggygallery/internal/mediatypes"
)

// ErrNoEmbeddedArt is returned when a track carries no picture.
var ErrNoEmbeddedArt = errors.New("no embedded album art")

// TrackTags is the subset of audio metadata shown by the player.
type TrackTags struct {
	Title   string
	Artist  string
	Album   string
	Picture *Picture
}

// Picture is embedded cover art.
type Picture struct {
	MIMEType string
	Data     []byte
}

// ReadTrackTags parses ID3, MP4, FLAC or Ogg metadata.
func ReadTrackTags(r io.ReadSeeker) (TrackTags, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return TrackTags{}, fmt.Errorf("read tags: %w", err)
	}

	tags := TrackTags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}
	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		tags.Picture = &Picture{MIMEType: pictureMIME(p), Data: p.Data}
	}
	return tags, nil
}

// EmbeddedArt returns the cover picture of a track. Untagged or unreadable
// tags count as no picture.
func EmbeddedArt(r io.ReadSeeker) (*Picture, error) {
	tags, err := ReadTrackTags(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEmbeddedArt, err)
	}
	if tags.Picture == nil {
		return nil, ErrNoEmbeddedArt
	}
	return tags.Picture, nil
}

func pictureMIME(p *tag.Picture) string {
	if p.MIMEType != "" && strings.HasPrefix(p.MIMEType, "image/") {
		return p.MIMEType
	}
	switch strings.ToLower(p.Ext) {
	case "png":
		return mediatypes.GetMimeType(".png")
	default:
		return mediatypes.GetMimeType(".jpg")
	}
}
