package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh entity identifier.
func New() string {
	return uuid.NewString()
}

// Short returns the first block of an identifier, for compact listings.
// "0b5c1e3a-...-..." -> "0b5c1e3a"
func Short(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Resolve finds the single identifier in ids that equals ref or starts with it.
// It lets the CLI accept the short form printed by listings.
func Resolve(ref string, ids []string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty id")
	}
	var match string
	for _, candidate := range ids {
		if candidate == ref {
			return candidate, nil
		}
		if strings.HasPrefix(candidate, ref) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", ref)
			}
			match = candidate
		}
	}
	if match == "" {
		return "", fmt.Errorf("unknown id %q", ref)
	}
	return match, nil
}
