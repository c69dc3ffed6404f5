// Package media builds the catalog that the gallery pages render.
//
// A Scanner lists one directory at a time through a filesystem.Resolver,
// dropping hidden entries and unrecognized extensions, and returns a
// DirectoryListing sorted case-insensitively and paginated after filtering.
// Recursive searches and random picks go through an Index, a snapshot of
// the whole tree that an fsnotify watcher invalidates on change.
//
// ThumbnailGenerator renders bounded JPEG thumbnails of raster images with
// an optional disk cache, and ReadTrackTags exposes audio metadata and
// embedded cover art.
package media
