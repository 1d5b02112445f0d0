package dicomdir

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxFileIDDepth = 8

// ToFileID splits a path relative to the DICOMDIR directory into the
// components of a ReferencedFileID. Components must be 1 to 8 characters
// of upper case letters, digits and underscore.
func ToFileID(rel string) ([]string, error) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "../") || rel == ".." {
		return nil, fmt.Errorf("file id %q: path leaves the file set", rel)
	}
	parts := strings.Split(rel, "/")
	if len(parts) > maxFileIDDepth {
		return nil, fmt.Errorf("file id %q: %d levels, at most %d", rel, len(parts), maxFileIDDepth)
	}
	for _, p := range parts {
		if !validFileIDComponent(p) {
			return nil, fmt.Errorf("file id %q: invalid component %q", rel, p)
		}
	}
	return parts, nil
}

func validFileIDComponent(s string) bool {
	if s == "" || len(s) > 8 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// FromFileID joins ReferencedFileID components into a relative path.
func FromFileID(ids []string) string {
	return filepath.Join(ids...)
}
