// Package strings holds small normalizers for user-supplied name lists.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims and lower-cases each value, drops blanks and keeps
// the first occurrence of each. Order is preserved; nil stays nil.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
