package grouping

import (
	"crypto/sha1"
	"encoding/hex"
)

// Fingerprint is a short digest of a node's canonical rendering. Callers that
// reduce trees themselves can ignore it; nil nodes have no fingerprint.
func Fingerprint(n *Node) string {
	if n == nil {
		return ""
	}
	sum := sha1.Sum([]byte(n.String()))
	return hex.EncodeToString(sum[:16])
}
