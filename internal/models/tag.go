package models

import (
	"strings"

	"github.com/google/uuid"
)

// TagMaxLength is the maximum number of characters in a tag name.
const TagMaxLength = 100

// Tag is a free-form label attached to articles. Names are unique without
// regard to case.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`

	// Number of articles linked to the tag, whatever their status; filled by
	// aggregate queries.
	Count int `json:"count,omitempty"`
}

// ParseTags splits a user-entered tag string into distinct names. Commas
// separate tags when present, otherwise whitespace does. Duplicates are
// dropped case-insensitively, keeping the first spelling.
func ParseTags(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	var parts []string
	if strings.Contains(input, ",") {
		parts = strings.Split(input, ",")
	} else {
		parts = strings.Fields(input)
	}

	seen := make(map[string]bool, len(parts))
	var names []string
	for _, p := range parts {
		name := strings.Trim(strings.TrimSpace(p), `"`)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// joinTags is the inverse of ParseTags for display in forms.
func joinTags(names []string) string {
	return strings.Join(names, ", ")
}
