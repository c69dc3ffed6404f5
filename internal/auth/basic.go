package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"doggygallery/internal/logging"
	"doggygallery/internal/metrics"
)

// Realm is the Basic Auth realm announced to browsers.
const Realm = "DoggyGallery"

// Config configures HTTP Basic Auth.
type Config struct {
	Username string
	// Password is compared in constant time, or with bcrypt when it is a
	// bcrypt hash.
	Password string
	// Exempt lists exact paths served without credentials.
	Exempt []string
}

// Authenticator checks Basic Auth credentials and rate limits failures.
type Authenticator struct {
	username []byte
	password []byte
	hashed   bool
	limiter  *Limiter
	exempt   map[string]bool
}

// New creates an Authenticator. limiter may be nil to disable rate limiting.
func New(cfg Config, limiter *Limiter) *Authenticator {
	exempt := make(map[string]bool, len(cfg.Exempt))
	for _, p := range cfg.Exempt {
		exempt[p] = true
	}
	return &Authenticator{
		username: []byte(cfg.Username),
		password: []byte(cfg.Password),
		hashed:   IsBcryptHash(cfg.Password),
		limiter:  limiter,
		exempt:   exempt,
	}
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashPassword returns a bcrypt hash suitable for the password setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check reports whether the credentials match. Both fields are always
// compared so that timing does not reveal which one was wrong.
func (a *Authenticator) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), a.username) == 1

	var passOK bool
	if a.hashed {
		passOK = bcrypt.CompareHashAndPassword(a.password, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), a.password) == 1
	}
	return userOK && passOK
}

// Middleware requires valid credentials on every non-exempt request.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		addr := clientAddr(r)
		if a.limiter != nil && a.limiter.Blocked(addr) {
			metrics.AuthAttemptsTotal.WithLabelValues("rate_limited").Inc()
			logging.Warn("Rate limited authentication from %s", addr)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many failed authentication attempts", http.StatusTooManyRequests)
			return
		}

		username, password, ok := r.BasicAuth()
		if ok && a.Check(username, password) {
			if a.limiter != nil {
				a.limiter.Clear(addr)
			}
			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
			return
		}

		// A request without credentials is the browser's first attempt, not
		// a failed guess.
		if ok {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			logging.Warn("Failed authentication for user %q from %s", username, addr)
			if a.limiter != nil {
				a.limiter.Failure(addr)
			}
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`", charset="UTF-8"`)
		http.Error(w, "Authentication required", http.StatusUnauthorized)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
