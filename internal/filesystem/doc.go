/*
Package filesystem confines untrusted, user-supplied paths to the media root.

# Resolution

Resolver.Resolve runs two phases:

 1. Lexical validation (CleanRelative). The input is percent-decoded
    repeatedly, backslashes become separators, and the path is rejected
    with ErrPathTraversal if it is absolute or contains a ".." segment,
    or with ErrHiddenFile if any segment starts with ".". No filesystem
    access happens in this phase.
 2. Canonicalization. The cleaned path is joined onto the canonical root
    and symlinks are evaluated. A result outside the root (compared on
    path component boundaries) is ErrPathTraversal, a result with a
    hidden segment is ErrHiddenFile and a missing target is ErrNotFound.

Usage:

	r, err := filesystem.NewResolver("/srv/media")
	if err != nil {
	    log.Fatal(err)
	}
	res, err := r.Resolve("albums/2024/beach.jpg")
	switch {
	case errors.Is(err, filesystem.ErrPathTraversal), errors.Is(err, filesystem.ErrHiddenFile):
	    // 403
	case errors.Is(err, filesystem.ErrNotFound):
	    // 404
	}
	f, err := r.Open(res)

# Opening

Open and ReadDir go through an os.Root handle on the media root, so a
symlink swapped in between validation and open still cannot reach files
outside the root.

# Archives

ResolveArchive accepts "music/album.zip!/disc1/01.mp3", resolves the archive
file and validates the entry path with the same segment rules.
*/
package filesystem
