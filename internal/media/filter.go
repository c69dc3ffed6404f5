package media

import (
	"strings"

	"golang.org/x/text/cases"

	"doggygallery/internal/mediatypes"
)

// Filter selects media items. Empty fields impose no constraint and all
// present fields must match.
type Filter struct {
	Type      mediatypes.FileType `json:"type,omitempty"`
	Extension string              `json:"extension,omitempty"`
	Name      string              `json:"name,omitempty"`
}

// IsZero reports whether the filter has no constraints.
func (f Filter) IsZero() bool {
	return f.Type == "" && f.Extension == "" && f.Name == ""
}

// Matches reports whether item satisfies every present constraint.
func (f Filter) Matches(item MediaItem) bool {
	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.Extension != "" {
		ext := strings.ToLower(strings.TrimSpace(f.Extension))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !strings.HasSuffix(strings.ToLower(item.Name), ext) {
			return false
		}
	}
	if f.Name != "" && !strings.Contains(fold(item.Name), fold(f.Name)) {
		return false
	}
	return true
}

// fold returns a case-folded key. A Caser is stateful, so one is created
// per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
