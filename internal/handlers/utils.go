package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"doggygallery/internal/logging"
)

// respondJSON writes v with the given status. A HEAD request gets the
// headers only. Encoding failures are logged; the status is already sent.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r != nil && r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONOK writes v with status 200.
func writeJSONOK(w http.ResponseWriter, v any) {
	respondJSON(w, nil, http.StatusOK, v)
}

// writeJSONError writes {"error": message}.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	respondJSON(w, nil, statusCode, map[string]string{"error": message})
}

// queryInt parses a positive integer query parameter. Missing, malformed
// and non-positive values yield def.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// queryBool parses a boolean query parameter, falling back to def.
func queryBool(r *http.Request, key string, def bool) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
