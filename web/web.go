// Package web embeds the gallery's HTML templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// layoutTemplate is shared by every page.
const layoutTemplate = "templates/layout.html"

// Page names accepted by Pages.Render.
const (
	PageGallery = "gallery.html"
	PageMusic   = "music.html"
)

// Static returns the static asset tree rooted at "static".
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Pages holds one parsed template set per page.
type Pages struct {
	pages map[string]*template.Template
}

// NewPages parses every page together with the layout.
func NewPages() (*Pages, error) {
	p := &Pages{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageGallery, PageMusic} {
		t, err := template.New(name).Funcs(FuncMap()).ParseFS(templateFS, "templates/"+name, layoutTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

// Render executes the layout of page with data.
func (p *Pages) Render(w io.Writer, page string, data any) error {
	t, ok := p.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// FuncMap returns the helpers available to templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"humanizeBytes": func(n int64) string {
			if n < 0 {
				n = 0
			}
			return humanize.IBytes(uint64(n))
		},
		"escapePath":  EscapePath,
		"mediaURL":    func(p string) string { return "/media/" + EscapePath(p) },
		"thumbURL":    func(p string) string { return "/thumbnail/" + EscapePath(p) },
		"galleryURL":  func(p string) string { return "/" + EscapePath(p) },
		"musicURL":    MusicURL,
		"archiveURL":  func(p string) string { return "/music-archive/" + EscapePath(p) },
		"entryURL":    EntryURL,
		"albumArtURL": func(p string) string { return "/album-art/" + EscapePath(p) },
		"baseName":    path.Base,
		"joinPath":    path.Join,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
	}
}

// EscapePath percent-encodes each segment of a slash-separated path.
func EscapePath(p string) string {
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// MusicURL returns the music page of a directory.
func MusicURL(p string) string {
	if p == "" {
		return "/music"
	}
	return "/music/" + EscapePath(p)
}

// EntryURL returns the media URL of an archive entry. The "!/" marker is
// left unescaped so clients can split the composite path.
func EntryURL(archive, inner string) string {
	return "/media-archive/" + EscapePath(archive) + "!/" + EscapePath(inner)
}
