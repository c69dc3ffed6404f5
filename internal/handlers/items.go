package handlers

import (
	"doggygallery/internal/archive"
	"doggygallery/internal/lightbox"
	"doggygallery/internal/media"
	"doggygallery/web"
)

// itemsFromListing builds the viewer playlist for one page of media. The
// src of each item is the URL the page links to, so a click opens the
// lightbox at that item.
func itemsFromListing(entries []media.MediaItem) []lightbox.Item {
	items := make([]lightbox.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, lightbox.Item{
			Src:  mediaURL(e.Path),
			Type: string(e.Type),
			Name: e.Name,
		})
	}
	return items
}

// itemsFromArchive builds the viewer playlist for entries of an archive.
func itemsFromArchive(archivePath string, entries []archive.Entry) []lightbox.Item {
	items := make([]lightbox.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, lightbox.Item{
			Src:  web.EntryURL(archivePath, e.Path),
			Type: string(e.Type),
			Name: e.Name,
		})
	}
	return items
}

func mediaURL(p string) string {
	return "/media/" + web.EscapePath(p)
}
