// Package taxonomy maps raw SpeciesNet taxonomy labels to display names.
package taxonomy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenericName is the too-coarse classification result that triggers a retry
// of the classifier and, once retries are exhausted, the vision fallback.
const GenericName = "Bird"

// UnknownName is returned for empty or blank labels.
const UnknownName = "Unknown"

// blocklist contains normalized names that are never persisted as attributions.
var blocklist = map[string]struct{}{
	"blank":   {},
	"unknown": {},
	"vehicle": {},
	"human":   {},
	"person":  {},
	"":        {},
}

var titleCaser = cases.Title(language.English)

// Normalize extracts a display name from a semicolon-delimited taxonomy path.
// The last non-empty segment is significant, or the whole input when every
// segment is empty; underscores become spaces and words are title-cased.
// Normalize is idempotent on already-canonical input. Blank input yields
// UnknownName.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return UnknownName
	}

	name := raw
	var segments []string
	for _, part := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) > 0 {
		name = segments[len(segments)-1]
	}

	name = strings.ReplaceAll(name, "_", " ")
	return titleCaser.String(name)
}

// IsGeneric reports whether a display name is the generic bird category
// rather than a usable species identification.
func IsGeneric(name string) bool {
	return strings.EqualFold(name, GenericName)
}

// IsBlocked reports whether a display name is excluded from attribution,
// such as non-bird detections and blank frames.
func IsBlocked(name string) bool {
	_, blocked := blocklist[strings.ToLower(name)]
	return blocked
}
