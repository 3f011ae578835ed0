package utils

import "strings"

// MaskID hides all but the last four characters of an identifier for logging
func MaskID(id string) string {
	const visible = 4
	if len(id) <= visible {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-visible) + id[len(id)-visible:]
}
