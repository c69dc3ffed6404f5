package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"doggygallery/internal/archive"
	"doggygallery/internal/filesystem"
	"doggygallery/internal/lightbox"
	"doggygallery/internal/logging"
	"doggygallery/internal/media"
	"doggygallery/internal/mediatypes"
	"doggygallery/internal/startup"
	"doggygallery/web"
)

const (
	sectionGallery = "gallery"
	sectionMusic   = "music"
)

// pageSizes are offered in the per-page selector, capped by max_per_page.
var pageSizes = []int{25, 50, 100, 200, 500}

// pageData is the model every HTML page is rendered with.
type pageData struct {
	AppName     string
	EmojiPrefix string
	Version     string
	Title       string
	Section     string

	Listing        *media.DirectoryListing
	Filter         media.Filter
	Recursive      bool
	Items          []lightbox.Item
	PerPageOptions []int
	PrevURL        string
	NextURL        string

	// Archive is set on archive pages; ArchiveEntries then replaces
	// Listing.Entries.
	Archive        string
	ArchiveEntries []archive.Entry
}

func (h *Handlers) newPage(section, title string, listing *media.DirectoryListing) *pageData {
	return &pageData{
		AppName:        startup.AppName,
		EmojiPrefix:    startup.EmojiPrefix,
		Version:        startup.Version,
		Title:          title,
		Section:        section,
		Listing:        listing,
		PerPageOptions: perPageOptions(h.scanner.DefaultPerPage(), h.scanner.MaxPerPage()),
	}
}

func perPageOptions(def, maxPerPage int) []int {
	opts := make([]int, 0, len(pageSizes)+1)
	for _, n := range pageSizes {
		if n <= maxPerPage {
			opts = append(opts, n)
		}
	}
	if !slices.Contains(opts, def) {
		opts = append(opts, def)
		slices.Sort(opts)
	}
	return opts
}

// setPager fills the previous/next links. base is the escaped page path;
// the current query string is kept so filters survive paging.
func (d *pageData) setPager(r *http.Request, base string) {
	l := d.Listing
	link := func(page int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page))
		return base + "?" + q.Encode()
	}
	if l.Page > 1 {
		d.PrevURL = link(min(l.Page-1, l.TotalPages))
	}
	if l.Page < l.TotalPages {
		d.NextURL = link(l.Page + 1)
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, page string, data *pageData) {
	var buf bytes.Buffer
	if err := h.pages.Render(&buf, page, data); err != nil {
		writeError(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Debug("failed to write page %s: %v", page, err)
	}
}

// parseFilter reads type, extension and name. An unknown type is a bad
// request; absent parameters impose no constraint.
func parseFilter(r *http.Request) (media.Filter, error) {
	q := r.URL.Query()
	f := media.Filter{
		Extension: strings.TrimSpace(q.Get("extension")),
		Name:      strings.TrimSpace(q.Get("name")),
	}
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t, ok := mediatypes.ParseFileType(raw)
		if !ok {
			return media.Filter{}, fmt.Errorf("type %q: %w", raw, errBadRequest)
		}
		f.Type = t
	}
	return f, nil
}

func pageTitle(l *media.DirectoryListing) string {
	if l.Path == "" {
		return media.RootName
	}
	return l.Name
}

// Gallery renders the media grid of a directory.
func (h *Handlers) Gallery(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recursive := queryBool(r, "recursive", false)

	listing, err := h.scanner.List(r.Context(), mux.Vars(r)["path"], media.ListOptions{
		Filter:    filter,
		Page:      queryInt(r, "page", 1),
		PerPage:   queryInt(r, "per_page", h.scanner.DefaultPerPage()),
		Recursive: recursive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := h.newPage(sectionGallery, pageTitle(listing), listing)
	data.Filter = filter
	data.Recursive = recursive
	data.Items = itemsFromListing(listing.Entries)
	data.setPager(r, "/"+web.EscapePath(listing.Path))
	h.render(w, r, web.PageGallery, data)
}

// Music renders the audio tracks, folders and audio archives of a directory.
func (h *Handlers) Music(w http.ResponseWriter, r *http.Request) {
	listing, err := h.scanner.MusicListing(r.Context(), mux.Vars(r)["path"],
		queryInt(r, "page", 1), queryInt(r, "per_page", h.scanner.DefaultPerPage()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := h.newPage(sectionMusic, "Music · "+pageTitle(listing), listing)
	data.Items = itemsFromListing(listing.Entries)
	data.setPager(r, web.MusicURL(listing.Path))
	h.render(w, r, web.PageMusic, data)
}

// MusicArchive renders the audio entries of one archive.
func (h *Handlers) MusicArchive(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolveFile(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.listArchive(res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	audio := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type == mediatypes.FileTypeAudio {
			audio = append(audio, e)
		}
	}

	parent := path.Dir(res.Rel)
	if parent == "." {
		parent = ""
	}
	listing := &media.DirectoryListing{
		Path:           parent,
		Name:           res.Name(),
		Parent:         parent,
		HasParent:      true,
		Breadcrumb:     media.Breadcrumb(parent),
		Entries:        []media.MediaItem{},
		Subdirectories: []string{},
		Page:           1,
		PerPage:        max(1, len(audio)),
		TotalEntries:   len(audio),
		TotalPages:     1,
	}

	data := h.newPage(sectionMusic, res.Name()+" (archive)", listing)
	data.Archive = res.Rel
	data.ArchiveEntries = audio
	data.Items = itemsFromArchive(res.Rel, audio)
	h.render(w, r, web.PageMusic, data)
}

// resolveFile resolves p and requires a regular file.
func (h *Handlers) resolveFile(p string) (filesystem.Resolved, error) {
	res, err := h.resolver.Resolve(p)
	if err != nil {
		return filesystem.Resolved{}, err
	}
	if res.IsDir() {
		return filesystem.Resolved{}, fmt.Errorf("%s is a directory: %w", res.Rel, filesystem.ErrNotFound)
	}
	return res, nil
}

// RedirectBrowse maps the legacy /browse URLs onto the gallery.
func RedirectBrowse(w http.ResponseWriter, r *http.Request) {
	target := "/" + strings.TrimPrefix(strings.TrimPrefix(r.URL.EscapedPath(), "/browse"), "/")
	redirect(w, r, target)
}

// RedirectMusicSlash drops the trailing slash of /music/.
func RedirectMusicSlash(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/music")
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	// Only local paths; "//host" would be protocol-relative.
	if strings.HasPrefix(target, "//") {
		target = "/" + strings.TrimLeft(target, "/")
	}
	u := url.URL{Path: "/"}
	if parsed, err := url.Parse(target); err == nil && parsed.Host == "" && parsed.Scheme == "" {
		u = *parsed
	}
	http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
}
