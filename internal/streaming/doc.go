/*
Package streaming delivers media files to HTTP clients.

# Delivery

[Delivery.Serve] streams a file that a filesystem.Resolver has already
validated. It refuses anything that is not allowlisted image, video or audio
media before opening the file, optionally sniffs the first bytes with
mimetype to confirm the content matches the extension, and then hands the
open handle to http.ServeContent, which answers Range requests with 206 or
416 and conditional requests with 304.

Every media response carries:

	Cache-Control: public, max-age=3600
	X-Content-Type-Options: nosniff
	Accept-Ranges: bytes

SVG files additionally get a sandboxing Content-Security-Policy so that any
embedded script stays inert when the file is opened directly.

[Delivery.ServeArchiveEntry] applies the same policy to an entry extracted
from an archive into memory.

# Slow clients

Writes go through a [TimeoutWriter], an http.ResponseWriter that:

  - sets a connection write deadline before each write, so a stalled
    client cannot hold a handler forever
  - cancels the stream when nothing was written for IdleTimeout
  - splits large writes into ChunkSize pieces and flushes after each one
  - stops after MaxDuration when one is configured

Errors are sentinels and can be checked with errors.Is:

	if errors.Is(err, streaming.ErrClientGone) {
	    // client disconnected, not a server error
	}
*/
package streaming
