package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"doggygallery/internal/auth"
)

// minPasswordLength is the shortest password accepted.
const minPasswordLength = 6

var (
	errMismatch = errors.New("passwords do not match")
	errTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	errNotHash  = errors.New("not a bcrypt hash")
)

// passwordReader reads one password without echo.
type passwordReader func() ([]byte, error)

func readTerminal() ([]byte, error) {
	return term.ReadPassword(int(syscall.Stdin))
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch command := os.Args[1]; command {
	case "hash":
		err = runHash(os.Stdout, os.Stderr, readTerminal)
	case "check":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: check needs the hash as an argument")
			os.Exit(1)
		}
		err = runCheck(os.Stdout, os.Stderr, os.Args[2], readTerminal)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "DoggyGallery Password Hashing")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hashpw <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  hash          - Prompt for a password and print its bcrypt hash")
	fmt.Fprintln(w, "  check <hash>  - Prompt for a password and verify it against a hash")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Use the hash as DOGGYGALLERY_PASSWORD or --password.")
}

// newHash validates a password and its confirmation and returns the hash.
func newHash(password, confirm []byte) (string, error) {
	if !bytes.Equal(password, confirm) {
		return "", errMismatch
	}
	if len(password) < minPasswordLength {
		return "", errTooShort
	}
	return auth.HashPassword(string(password))
}

func runHash(stdout, prompt io.Writer, read passwordReader) error {
	fmt.Fprint(prompt, "New Password: ")
	password, err := read()
	fmt.Fprintln(prompt)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(prompt, "Confirm Password: ")
	confirm, err := read()
	fmt.Fprintln(prompt)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	hash, err := newHash(password, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}

func runCheck(stdout, prompt io.Writer, hash string, read passwordReader) error {
	if !auth.IsBcryptHash(hash) {
		return errNotHash
	}

	fmt.Fprint(prompt, "Password: ")
	password, err := read()
	fmt.Fprintln(prompt)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	// Username is not part of the check.
	a := auth.New(auth.Config{Password: hash}, nil)
	if !a.Check("", string(password)) {
		fmt.Fprintln(stdout, "Password does NOT match")
		return errMismatch
	}
	fmt.Fprintln(stdout, "Password matches")
	return nil
}
