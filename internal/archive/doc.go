// Package archive lists and extracts media stored in zip, tar, tar.gz/tgz
// and tar.bz2/tbz2 files. Only non-hidden media entries are visible;
// entries with absolute names or ".." segments are ignored.
package archive
