// Package fallback holds the shared pieces of the fallback sinks: content
// the pipeline could not deliver is persisted by one of the backends in the
// fs, s3 and memory subpackages.
package fallback

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrSinkClosed is returned by Persist after Close.
	ErrSinkClosed = errors.New("fallback sink is closed")

	// ErrInvalidName is returned for names that sanitize to nothing.
	ErrInvalidName = errors.New("invalid fallback name")
)

// maxNameLength keeps names within common filesystem limits.
const maxNameLength = 200

// SanitizeName maps an item name onto a single safe path element.
// Path separators, control characters and leading dots are replaced, so the
// result can never escape the sink's root.
func SanitizeName(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	if clean == "" {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if len(clean) > maxNameLength {
		cut := maxNameLength
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = clean[:cut]
	}
	return clean, nil
}
