// Package tags turns free-text tag input into canonical tag names and slugs.
package tags

import "strings"

// Normalize splits a comma-separated tag string into distinct tag names.
// Entries are trimmed, empties dropped, and duplicates removed
// case-insensitively while keeping the casing of the first occurrence.
// Empty or whitespace-only input yields nil, which is a valid "no tags"
// result rather than an error.
func Normalize(input string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(input, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Slugify derives a tag's URL slug from its name: lowercase, spaces to
// hyphens.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
