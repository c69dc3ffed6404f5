package mediatypes

import (
	"path"
	"sort"
	"strings"
)

// FileType represents the type of a gallery entry.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "directory"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeArchive represents a zip or tar archive that may hold media.
	FileTypeArchive FileType = "archive"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".svg":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".flv":  true,
	".wmv":  true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".wma":  true,
}

// ArchiveSuffixes lists the recognised archive suffixes, longest first so
// that ".tar.gz" wins over ".gz".
var ArchiveSuffixes = []string{".tar.bz2", ".tar.gz", ".tbz2", ".tgz", ".tar", ".zip"}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",

	// Videos
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",

	// Audio
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".opus": "audio/opus",
	".wma":  "audio/x-ms-wma",
}

// Ext returns the lowercased final extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// ArchiveSuffix returns the archive suffix of name ("" if name is not an archive).
func ArchiveSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, s := range ArchiveSuffixes {
		if strings.HasSuffix(lower, s) && len(lower) > len(s) {
			return s
		}
	}
	return ""
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	return FileTypeOther
}

// FileTypeForName classifies a file by name, recognising multi-part archive
// suffixes in addition to the media extension tables.
func FileTypeForName(name string) FileType {
	if ArchiveSuffix(name) != "" {
		return FileTypeArchive
	}
	return GetFileType(Ext(name))
}

// ParseFileType parses the media type names accepted by filter queries.
func ParseFileType(s string) (FileType, bool) {
	switch FileType(strings.ToLower(strings.TrimSpace(s))) {
	case FileTypeImage:
		return FileTypeImage, true
	case FileTypeVideo:
		return FileTypeVideo, true
	case FileTypeAudio:
		return FileTypeAudio, true
	default:
		return "", false
	}
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a servable media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// IsRasterImage reports whether ext is an image format that can be decoded
// for thumbnailing. SVG is excluded.
func IsRasterImage(ext string) bool {
	return ImageExtensions[ext] && ext != ".svg"
}

// Extensions returns the sorted extensions (without dots) of one table, as
// advertised by the config endpoint.
func Extensions(table map[string]bool) []string {
	out := make([]string, 0, len(table))
	for ext := range table {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}
