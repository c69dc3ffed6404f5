package media

import (
	"errors"
	"fmt"
	"time"

	"doggygallery/internal/mediatypes"
)

// ErrNotADirectory is returned when a listing is requested for a file.
var ErrNotADirectory = errors.New("not a directory")

// IOError reports an underlying read failure that aborted a listing.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// MediaItem represents a servable media file in the library.
type MediaItem struct {
	Name      string              `json:"name"`
	Path      string              `json:"path"`
	Type      mediatypes.FileType `json:"type"`
	Extension string              `json:"extension"`
	Size      int64               `json:"size"`
	ModTime   time.Time           `json:"modTime"`
	MimeType  string              `json:"mimeType"`
}

// DirectoryListing represents one page of a directory or search result.
type DirectoryListing struct {
	Path           string      `json:"path"`
	Name           string      `json:"name"`
	Parent         string      `json:"parent"`
	HasParent      bool        `json:"hasParent"`
	Breadcrumb     []PathPart  `json:"breadcrumb"`
	Entries        []MediaItem `json:"entries"`
	Subdirectories []string    `json:"subdirectories"`
	Archives       []MediaItem `json:"archives,omitempty"`
	Page           int         `json:"page"`
	PerPage        int         `json:"perPage"`
	TotalEntries   int         `json:"totalEntries"`
	TotalPages     int         `json:"totalPages"`
}

// StartIndex returns the 1-based position of the first entry on this page,
// or 0 when the page is empty.
func (l *DirectoryListing) StartIndex() int {
	if len(l.Entries) == 0 {
		return 0
	}
	return (l.Page-1)*l.PerPage + 1
}

// EndIndex returns the 1-based position of the last entry on this page.
func (l *DirectoryListing) EndIndex() int {
	if len(l.Entries) == 0 {
		return l.TotalEntries
	}
	return min((l.Page-1)*l.PerPage+len(l.Entries), l.TotalEntries)
}

// PathPart represents a single component of a breadcrumb path.
type PathPart struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ListOptions controls filtering and pagination of a listing.
type ListOptions struct {
	Filter    Filter
	Page      int
	PerPage   int
	Recursive bool
}
