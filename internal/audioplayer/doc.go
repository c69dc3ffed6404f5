// Package audioplayer holds the rules of the gallery's enhanced audio
// player: time formatting, volume-to-gain mapping, seek handling while the
// slider is dragged, and album-art discovery next to the track.
//
// The player itself runs in the browser (web/static/js/gallery.js). Player
// is the Go reference model of that widget's state and is exercised only by
// tests; the art helpers also back /api/track-info. The constants shared with
// the script (ArtFilenames, ArchiveMarker, PlaceholderArt) are checked
// against it by the web package tests.
package audioplayer
