// Package mediatypes provides shared type definitions and utilities for media file
// handling across DoggyGallery.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains primitive types, constants,
// and pure utility functions with no external dependencies beyond the standard library.
//
// # File Types
//
//	mediatypes.FileTypeFolder   // Directories
//	mediatypes.FileTypeImage    // jpg, jpeg, png, gif, webp, bmp, svg
//	mediatypes.FileTypeVideo    // mp4, webm, mkv, avi, mov, flv, wmv
//	mediatypes.FileTypeAudio    // mp3, flac, wav, ogg, oga, m4a, aac, opus, wma
//	mediatypes.FileTypeArchive  // zip, tar, tar.gz, tgz, tar.bz2, tbz2
//	mediatypes.FileTypeOther    // Unrecognized files, never listed or served
//
// # Extension Detection
//
// Use FileTypeForName to classify a directory entry; it understands
// multi-part archive suffixes:
//
//	switch mediatypes.FileTypeForName(entry.Name()) {
//	case mediatypes.FileTypeImage:
//	    // Handle image
//	case mediatypes.FileTypeArchive:
//	    // Handle archive
//	}
//
// # MIME Types
//
// GetMimeType maps an allowlisted extension to the Content-Type used for
// delivery:
//
//	mimeType := mediatypes.GetMimeType(mediatypes.Ext(name)) // e.g., "image/jpeg"
package mediatypes
