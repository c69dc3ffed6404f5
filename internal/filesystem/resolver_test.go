package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree builds:
//
//	outside/secret.txt
//	media/a.png
//	media/albums/b.mp4
//	media/.hidden.png
//	media/.git/config
//	media/link-out -> outside
//	media/file-out -> outside/secret.txt
//	media/link-in  -> albums
//	media/link-hidden -> .hidden.png
func newTestTree(t *testing.T) (*Resolver, string) {
	t.Helper()
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	media := filepath.Join(base, "media")

	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(media, "albums"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(media, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(media, "a.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(media, "albums", "b.mp4"), []byte("mp4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(media, ".hidden.png"), []byte("hidden"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(media, ".git", "config"), []byte("cfg"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(media, "link-out")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(media, "file-out")))
	require.NoError(t, os.Symlink("albums", filepath.Join(media, "link-in")))
	require.NoError(t, os.Symlink(".hidden.png", filepath.Join(media, "link-hidden")))

	r, err := NewResolver(media)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, media
}

func TestResolveRejections(t *testing.T) {
	r, _ := newTestTree(t)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "parent traversal", path: "../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal to missing target", path: "../does-not-exist", wantErr: ErrPathTraversal},
		{name: "inner traversal", path: "albums/../../outside/secret.txt", wantErr: ErrPathTraversal},
		{name: "encoded traversal", path: "%2e%2e/%2e%2e/etc/passwd", wantErr: ErrPathTraversal},
		{name: "mixed case encoding", path: "%2E%2E/outside", wantErr: ErrPathTraversal},
		{name: "double encoded traversal", path: "%252e%252e/outside", wantErr: ErrPathTraversal},
		{name: "encoded separator", path: "albums%2f..%2f..%2foutside", wantErr: ErrPathTraversal},
		{name: "backslash traversal", path: `..\outside\secret.txt`, wantErr: ErrPathTraversal},
		{name: "absolute path", path: "/etc/passwd", wantErr: ErrPathTraversal},
		{name: "windows volume", path: "C:/Windows", wantErr: ErrPathTraversal},
		{name: "NUL byte", path: "a.png\x00.jpg", wantErr: ErrPathTraversal},
		{name: "symlinked directory escape", path: "link-out/secret.txt", wantErr: ErrPathTraversal},
		{name: "symlinked file escape", path: "file-out", wantErr: ErrPathTraversal},
		{name: "hidden file", path: ".hidden.png", wantErr: ErrHiddenFile},
		{name: "hidden directory", path: ".git/config", wantErr: ErrHiddenFile},
		{name: "encoded hidden file", path: "%2ehidden.png", wantErr: ErrHiddenFile},
		{name: "symlink to hidden file", path: "link-hidden", wantErr: ErrHiddenFile},
		{name: "missing file", path: "nope.png", wantErr: ErrNotFound},
		{name: "file used as directory", path: "a.png/x", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveAccepts(t *testing.T) {
	r, media := newTestTree(t)
	canonicalMedia, err := filepath.EvalSymlinks(media)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantRel string
		wantDir bool
	}{
		{name: "root", path: "", wantRel: "", wantDir: true},
		{name: "slash-only segments", path: "albums//", wantRel: "albums", wantDir: true},
		{name: "file", path: "a.png", wantRel: "a.png"},
		{name: "nested file", path: "albums/b.mp4", wantRel: "albums/b.mp4"},
		{name: "encoded separator", path: "albums%2Fb.mp4", wantRel: "albums/b.mp4"},
		{name: "symlink inside root is canonicalized", path: "link-in/b.mp4", wantRel: "albums/b.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRel, res.Rel)
			assert.Equal(t, tt.wantDir, res.IsDir())
			assert.Equal(t, filepath.Join(canonicalMedia, filepath.FromSlash(tt.wantRel)), res.Abs)
		})
	}
}

func TestCleanRelative(t *testing.T) {
	got, err := CleanRelative(`albums\2024//beach.jpg`)
	require.NoError(t, err)
	assert.Equal(t, "albums/2024/beach.jpg", got)

	got, err = CleanRelative("100%.jpg")
	require.NoError(t, err)
	assert.Equal(t, "100%.jpg", got)

	_, err = CleanRelative("./a.png")
	assert.ErrorIs(t, err, ErrHiddenFile)
}

func TestOpenReadsThroughRoot(t *testing.T) {
	r, _ := newTestTree(t)

	res, err := r.Resolve("link-in/b.mp4")
	require.NoError(t, err)

	f, err := r.Open(res)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "mp4", string(data))
}

func TestOpenVanishedFile(t *testing.T) {
	r, media := newTestTree(t)

	res, err := r.Resolve("a.png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(media, "a.png")))

	_, err = r.Open(res)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadDir(t *testing.T) {
	r, _ := newTestTree(t)

	res, err := r.Resolve("albums")
	require.NoError(t, err)
	entries, err := r.ReadDir(res)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.mp4", entries[0].Name())
}

func TestResolveArchive(t *testing.T) {
	r, media := newTestTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(media, "albums", "mix.zip"), []byte("zip"), 0o644))

	ref, err := r.ResolveArchive("albums/mix.zip!/disc 1/01.mp3")
	require.NoError(t, err)
	assert.Equal(t, "albums/mix.zip", ref.Archive.Rel)
	assert.Equal(t, "disc 1/01.mp3", ref.Inner)

	_, err = r.ResolveArchive("albums/mix.zip!/../01.mp3")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = r.ResolveArchive("albums/mix.zip!/.secret/01.mp3")
	assert.ErrorIs(t, err, ErrHiddenFile)

	_, err = r.ResolveArchive("../mix.zip!/01.mp3")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = r.ResolveArchive("albums/mix.zip")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.ResolveArchive("albums!/01.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewResolverRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewResolver(file)
	assert.Error(t, err)
}

type recordingObserver struct{ outcomes []string }

func (o *recordingObserver) ObserveResolve(outcome string, _ float64) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestObserverRecordsOutcomes(t *testing.T) {
	r, _ := newTestTree(t)
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	_, _ = r.Resolve("a.png")
	_, _ = r.Resolve("../x")
	_, _ = r.Resolve(".hidden.png")
	_, _ = r.Resolve("missing")

	assert.Equal(t, []string{"ok", "traversal", "hidden", "not_found"}, obs.outcomes)
}
