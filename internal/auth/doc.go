// Package auth implements HTTP Basic Authentication for the gallery.
//
// A single username and password protect every route except the health
// checks. The password may be stored in plain text or as a bcrypt hash
// (see cmd/hashpw); plain passwords are compared in constant time.
//
// Failed attempts are counted per client address by a [Limiter] built on
// golang.org/x/time/rate. Once an address exhausts its allowance it receives
// 429 Too Many Requests until the allowance refills. A successful login
// clears the address, and [Limiter.RunJanitor] drops stale entries.
package auth
