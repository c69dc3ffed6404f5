package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doggygallery/internal/filesystem"
	"doggygallery/internal/media"
	"doggygallery/internal/startup"
	"doggygallery/internal/streaming"
	"doggygallery/web"
)

// =============================================================================
// Fixture
// =============================================================================

const videoBody = "0123456789abcdef"

type fixture struct {
	root   string
	router http.Handler
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newFixture builds a media root with:
//
//	a.png  b.mp4  c.txt  .hidden.png  music.zip{album/track.mp3, album/cover.jpg}
//	sub/d.mp3  sub/cover.jpg
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	files := map[string][]byte{
		"a.png":         pngBytes(t),
		"b.mp4":         []byte(videoBody),
		"c.txt":         []byte("notes"),
		".hidden.png":   pngBytes(t),
		"sub/d.mp3":     []byte("not really audio"),
		"sub/cover.jpg": []byte("cover"),
		"music.zip": zipBytes(t, map[string]string{
			"album/track.mp3": "track bytes",
			"album/cover.jpg": "cover bytes",
		}),
	}
	for name, data := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	resolver, err := filesystem.NewResolver(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resolver.Close() })

	pages, err := web.NewPages()
	if err != nil {
		t.Fatal(err)
	}

	cfg := &startup.Config{
		FilterRecursive:      true,
		MaxArchiveEntryBytes: 1 << 20,
	}
	h := New(cfg,
		resolver,
		media.NewScanner(resolver, media.Config{DefaultPerPage: 2, MaxPerPage: 10}),
		media.NewThumbnailGenerator(resolver, "", 64, 1),
		streaming.NewDelivery(resolver, streaming.Config{Writer: streaming.DefaultTimeoutWriterConfig()}),
		pages,
	)
	return &fixture{root: root, router: h.Router(web.Static())}
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodGet, target, nil)
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Expected JSON content type, got %q", ct)
	}
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

// =============================================================================
// Media Tests
// =============================================================================

func TestMediaRejectsTraversal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	targets := []string{
		"/media/../../etc/passwd",
		"/media/sub/../../etc/passwd",
		"/media/%2e%2e/%2e%2e/etc/passwd",
		"/media/%252e%252e/%252e%252e/etc/passwd",
		"/media/..%2f..%2fetc%2fpasswd",
		"/media-archive/music.zip!/../../etc/passwd.mp3",
		"/thumbnail/../../etc/passwd",
		"/album-art/../secret.mp3",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			w := f.get(t, target)
			if w.Code != http.StatusForbidden {
				t.Fatalf("Expected 403, got %d (%q)", w.Code, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "passwd") {
				t.Error("Error body must not echo the requested path")
			}
		})
	}
}

func TestMediaStatusCodes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"hidden file", "/media/.hidden.png", http.StatusForbidden},
		{"unsupported extension", "/media/c.txt", http.StatusForbidden},
		{"missing unsupported file is not revealed", "/media/missing.txt", http.StatusForbidden},
		{"missing media file", "/media/missing.png", http.StatusNotFound},
		{"directory", "/media/sub", http.StatusForbidden},
		{"image", "/media/a.png", http.StatusOK},
		{"nested audio", "/media/sub/d.mp3", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(t, tt.target)
			if w.Code != tt.want {
				t.Errorf("GET %s: expected %d, got %d", tt.target, tt.want, w.Code)
			}
		})
	}
}

func TestMediaHeadersAndRanges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/media/b.mp4")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != videoBody {
		t.Errorf("Expected full body, got %q", w.Body.String())
	}
	wantHeaders := map[string]string{
		"Content-Type":           "video/mp4",
		"Accept-Ranges":          "bytes",
		"Cache-Control":          "public, max-age=3600",
		"X-Content-Type-Options": "nosniff",
	}
	for k, v := range wantHeaders {
		if got := w.Header().Get(k); got != v {
			t.Errorf("Expected %s=%q, got %q", k, v, got)
		}
	}

	w = f.do(t, http.MethodGet, "/media/b.mp4", http.Header{"Range": {"bytes=0-3"}})
	if w.Code != http.StatusPartialContent {
		t.Fatalf("Expected 206, got %d", w.Code)
	}
	if w.Body.String() != "0123" {
		t.Errorf("Expected first four bytes, got %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 0-3/16" {
		t.Errorf("Expected Content-Range bytes 0-3/16, got %q", got)
	}

	w = f.do(t, http.MethodGet, "/media/b.mp4", http.Header{"Range": {"bytes=100-200"}})
	if w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("Expected 416, got %d", w.Code)
	}
}

func TestMediaArchiveEntry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/media-archive/music.zip!/album/track.mp3")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%q)", w.Code, w.Body.String())
	}
	if w.Body.String() != "track bytes" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %q", ct)
	}

	w = f.do(t, http.MethodGet, "/media-archive/music.zip!/album/track.mp3", http.Header{"Range": {"bytes=6-10"}})
	if w.Code != http.StatusPartialContent || w.Body.String() != "bytes" {
		t.Errorf("Expected 206 \"bytes\", got %d %q", w.Code, w.Body.String())
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/media-archive/music.zip!/album/missing.mp3", http.StatusNotFound},
		{"/media-archive/missing.zip!/album/track.mp3", http.StatusNotFound},
		{"/media-archive/music.zip!/album/.hidden.mp3", http.StatusForbidden},
		{"/media-archive/music.zip!/album/notes.txt", http.StatusForbidden},
		{"/media-archive/a.png!/x.mp3", http.StatusForbidden},
		{"/media-archive/music.zip", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if w := f.get(t, tt.target); w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestThumbnail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/thumbnail/a.png")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%q)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte{0xFF, 0xD8}) {
		t.Error("Expected JPEG data")
	}

	if w := f.get(t, "/thumbnail/b.mp4"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for video thumbnail, got %d", w.Code)
	}
	if w := f.get(t, "/thumbnail/missing.png"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing file, got %d", w.Code)
	}
}

func TestAlbumArtMissing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, target := range []string{"/album-art/sub/d.mp3", "/album-art/music.zip!/album/track.mp3"} {
		if w := f.get(t, target); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", target, w.Code)
		}
	}
}

// =============================================================================
// Page Tests
// =============================================================================

func TestGalleryPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%q)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"a.png", "b.mp4", `href="/sub"`, "lightbox-items", "Showing 1–2 of 2"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	for _, unwanted := range []string{".hidden.png", "c.txt"} {
		if strings.Contains(body, unwanted) {
			t.Errorf("Page must not list %q", unwanted)
		}
	}
}

func TestGalleryPagination(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/?per_page=1")
	body := w.Body.String()
	if !strings.Contains(body, "Page 1 of 2") {
		t.Error("Expected two pages of one item")
	}
	if !strings.Contains(body, `rel="next"`) || strings.Contains(body, `rel="prev"`) {
		t.Error("Expected only a next link on the first page")
	}

	w = f.get(t, "/?per_page=1&page=2")
	body = w.Body.String()
	if !strings.Contains(body, "b.mp4") || strings.Contains(body, "/thumbnail/a.png") {
		t.Error("Expected the second item only on page 2")
	}

	w = f.get(t, "/?page=abc&per_page=-3")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Showing 1–2 of 2") {
		t.Errorf("Expected invalid paging values to fall back to defaults, got %d", w.Code)
	}

	for _, page := range []string{"36028797018963969", "4611686018427387905"} {
		w = f.get(t, "/?per_page=500&page="+page)
		if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "/thumbnail/a.png") {
			t.Errorf("page %s: expected an empty page, got %d", page, w.Code)
		}

		var listing media.DirectoryListing
		decodeJSON(t, f.get(t, "/api/filter?per_page=500&page="+page), &listing)
		if len(listing.Entries) != 0 || listing.TotalEntries != 4 {
			t.Errorf("page %s: expected no entries of 4, got %d of %d", page, len(listing.Entries), listing.TotalEntries)
		}
	}
}

func TestGalleryErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/?type=bogus", http.StatusBadRequest},
		{"/missing", http.StatusNotFound},
		{"/a.png", http.StatusNotFound},
		{"/.git", http.StatusForbidden},
		{"/../etc", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if w := f.get(t, tt.target); w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMusicPages(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/music")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "/music-archive/music.zip") {
		t.Error("Expected the audio archive to be listed")
	}
	if !strings.Contains(body, `href="/music/sub"`) {
		t.Error("Expected the subdirectory link")
	}

	w = f.get(t, "/music/sub")
	if !strings.Contains(w.Body.String(), "d.mp3") {
		t.Error("Expected d.mp3 on the music page")
	}

	w = f.get(t, "/music-archive/music.zip")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body = w.Body.String()
	if !strings.Contains(body, "track.mp3") || !strings.Contains(body, "(archive)") {
		t.Error("Expected archive tracks and title")
	}
	if strings.Contains(body, "cover.jpg") {
		t.Error("Archive music page must list audio only")
	}

	if w := f.get(t, "/music-archive/a.png"); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-archive, got %d", w.Code)
	}
}

func TestRedirects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		target   string
		location string
	}{
		{"/browse", "/"},
		{"/browse/", "/"},
		{"/browse/sub?page=2", "/sub?page=2"},
		{"/browse/a%20b", "/a%20b"},
		{"/browse//evil.example", "/evil.example"},
		{"/music/", "/music"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := f.get(t, tt.target)
			if w.Code != http.StatusMovedPermanently {
				t.Fatalf("Expected 301, got %d", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.location {
				t.Errorf("Expected Location %q, got %q", tt.location, loc)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if w := f.do(t, http.MethodPost, "/media/a.png", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

// =============================================================================
// API Tests
// =============================================================================

func TestAPIConfig(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var cfg ConfigResponse
	decodeJSON(t, f.get(t, "/api/config"), &cfg)

	if cfg.AppName != startup.AppName || cfg.TLSVersion != "TLS 1.3" || cfg.HTTPVersion != "HTTP/2" {
		t.Errorf("Unexpected identity fields: %+v", cfg)
	}
	if cfg.DefaultPerPage != 2 || cfg.MaxPerPage != 10 || !cfg.FilterRecursive {
		t.Errorf("Unexpected paging fields: %+v", cfg)
	}
	if len(cfg.ImageExtensions) == 0 || len(cfg.VideoExtensions) == 0 || len(cfg.AudioExtensions) == 0 {
		t.Error("Expected extension lists")
	}
}

func TestAPIFilter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		query string
		total int
	}{
		{"type=image", 2},
		{"type=image&recursive=false", 1},
		{"type=audio", 1},
		{"extension=mp4", 1},
		{"name=COVER", 1},
		{"path=sub&type=image", 1},
		{"", 4},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var listing media.DirectoryListing
			decodeJSON(t, f.get(t, "/api/filter?"+tt.query), &listing)
			if listing.TotalEntries != tt.total {
				t.Errorf("Expected %d matches, got %d", tt.total, listing.TotalEntries)
			}
		})
	}

	w := f.get(t, "/api/filter?type=bogus")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	var body map[string]string
	decodeJSON(t, w, &body)
	if body["error"] == "" {
		t.Error("Expected JSON error body")
	}
}

func TestAPIRandom(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var got RandomResponse
	decodeJSON(t, f.get(t, "/api/random?type=video"), &got)
	if got.Path != "b.mp4" || got.URL != "/media/b.mp4" || got.Type != "video" {
		t.Errorf("Unexpected random item %+v", got)
	}

	// The only match is returned even when excluded.
	decodeJSON(t, f.get(t, "/api/random?type=audio&exclude=sub/d.mp3"), &got)
	if got.Path != "sub/d.mp3" {
		t.Errorf("Expected sub/d.mp3, got %q", got.Path)
	}

	for range 20 {
		decodeJSON(t, f.get(t, "/api/random?type=image&exclude=a.png"), &got)
		if got.Path == "a.png" {
			t.Fatal("Excluded item returned although another match exists")
		}
	}

	if w := f.get(t, "/api/random?extension=gif"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when nothing matches, got %d", w.Code)
	}
}

func TestAPIItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var items []struct {
		Src  string `json:"src"`
		Type string `json:"type"`
		Name string `json:"name"`
	}
	decodeJSON(t, f.get(t, "/api/items?path="), &items)
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Src != "/media/a.png" || items[0].Type != "image" {
		t.Errorf("Unexpected first item %+v", items[0])
	}
}

func TestAPITrackInfo(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		target   string
		albumArt string
	}{
		{"/api/track-info/sub/d.mp3", "/media/sub/cover.jpg"},
		{"/api/track-info/music.zip!/album/track.mp3", "/media-archive/music.zip!/album/cover.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			var info struct {
				AlbumArt       string   `json:"albumArt"`
				HasEmbeddedArt bool     `json:"hasEmbeddedArt"`
				ArtCandidates  []string `json:"artCandidates"`
			}
			decodeJSON(t, f.get(t, tt.target), &info)
			if info.AlbumArt != tt.albumArt {
				t.Errorf("Expected album art %q, got %q", tt.albumArt, info.AlbumArt)
			}
			if info.HasEmbeddedArt {
				t.Error("Expected no embedded art")
			}
			if len(info.ArtCandidates) != 6 {
				t.Errorf("Expected 6 candidates, got %d", len(info.ArtCandidates))
			}
		})
	}

	if w := f.get(t, "/api/track-info/a.png"); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-audio file, got %d", w.Code)
	}
	if w := f.get(t, "/api/track-info/../x.mp3"); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for traversal, got %d", w.Code)
	}
	if w := f.get(t, "/api/nope"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown API route, got %d", w.Code)
	}
}

// =============================================================================
// Health and Asset Tests
// =============================================================================

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var health HealthResponse
	decodeJSON(t, f.get(t, "/healthz"), &health)
	if health.Status != statusHealthy || !health.Ready {
		t.Errorf("Unexpected health %+v", health)
	}

	for _, target := range []string{"/health", "/livez", "/readyz", "/version"} {
		if w := f.get(t, target); w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", target, w.Code)
		}
	}

	if w := f.do(t, http.MethodHead, "/livez", nil); w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("HEAD /livez: expected empty 200, got %d with %d bytes", w.Code, w.Body.Len())
	}
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := f.get(t, "/static/js/gallery.js")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != staticCacheControl {
		t.Errorf("Expected Cache-Control %q, got %q", staticCacheControl, cc)
	}

	for _, target := range []string{"/static/", "/static/js/", "/static/missing.css"} {
		if w := f.get(t, target); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", target, w.Code)
		}
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestPerPageOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def, max int
		want     []int
	}{
		{50, 500, []int{25, 50, 100, 200, 500}},
		{30, 100, []int{25, 30, 50, 100}},
		{2, 10, []int{2}},
	}
	for _, tt := range tests {
		got := perPageOptions(tt.def, tt.max)
		if len(got) != len(tt.want) {
			t.Errorf("perPageOptions(%d, %d) = %v, want %v", tt.def, tt.max, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("perPageOptions(%d, %d) = %v, want %v", tt.def, tt.max, got, tt.want)
				break
			}
		}
	}
}

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x&neg=-1&on=true&off=0&junk=maybe", http.NoBody)
	if got := queryInt(req, "page", 1); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
	for _, key := range []string{"bad", "neg", "missing"} {
		if got := queryInt(req, key, 7); got != 7 {
			t.Errorf("queryInt(%s) = %d, want default 7", key, got)
		}
	}
	if !queryBool(req, "on", false) || queryBool(req, "off", true) || !queryBool(req, "junk", true) {
		t.Error("queryBool returned unexpected values")
	}
}
