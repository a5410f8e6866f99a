package util

import "strings"

// SplitFullID parses "identifier:version" into its parts.
// The split is on the last colon; both halves must be non-empty.
func SplitFullID(fullID string) (identifier, version string, ok bool) {
	p := strings.LastIndex(fullID, ":")
	if p <= 0 || p == len(fullID)-1 {
		return "", "", false
	}
	return fullID[:p], fullID[p+1:], true
}
