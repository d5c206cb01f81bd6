package loupe

import (
	"errors"
	"strings"
)

// ErrNoMatch is returned by ApplyPatch when the search text does not occur
// verbatim in the original.
var ErrNoMatch = errors.New("loupe: search text not found")

// ApplyPatch replaces the first verbatim occurrence of search in original,
// exactly once. Whitespace is significant; there is no fuzzy fallback.
// Approximate matching risks corrupting code in ways no reviewer expects,
// so absence of an exact match returns ErrNoMatch and the caller decides
// whether to regenerate and retry.
func ApplyPatch(original, search, replace string) (string, error) {
	if search == "" {
		return "", errors.New("loupe: empty search text")
	}
	idx := strings.Index(original, search)
	if idx < 0 {
		return "", ErrNoMatch
	}
	return original[:idx] + replace + original[idx+len(search):], nil
}
