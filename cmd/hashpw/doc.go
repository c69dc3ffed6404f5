// Command hashpw prints bcrypt hashes for the DoggyGallery password
// setting, so that the plain password never has to be stored in a config
// file or environment.
//
// Usage:
//
//	hashpw <command>
//
// Commands:
//
//	hash          Prompt twice for a password (no echo) and print its
//	              bcrypt hash. Passwords shorter than 6 characters are
//	              rejected.
//
//	check <hash>  Prompt for a password and report whether it matches
//	              the given hash.
package main
