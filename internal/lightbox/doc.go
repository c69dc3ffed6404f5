// Package lightbox models the gallery's full-screen viewer as an explicit
// Session value: an ordered item list, a cursor, and the shuffle and
// play-all switches.
//
// The browser runs the same state machine in web/static/js/gallery.js.
// Session is the Go reference model of it and is driven only by tests; the
// server uses Item for the playlist embedded in gallery pages and
// PickDifferent for /api/random. SwipeThreshold, ImageDwell and ErrorDwell
// are checked against the script by the web package tests. The rules:
//
//   - Next and Prev wrap around and do nothing on an empty list.
//   - Random always changes the index when at least two items exist.
//   - Ended advances only while play-all is on: randomly when shuffled,
//     otherwise sequentially, looping forever.
//   - Failed skips a broken item the same way while play-all is on.
//   - Close always clears play-all.
//   - Keys and swipes are only handled while the session is open.
package lightbox
