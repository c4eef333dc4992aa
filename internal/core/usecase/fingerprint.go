package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// expansionFingerprint derives a stable cache key from the normalized query
// text and the expansion config version. Whitespace runs collapse so trivially
// reformatted queries share an entry.
func expansionFingerprint(query, configVersion string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized + "\x00" + configVersion))
	return hex.EncodeToString(sum[:])
}
