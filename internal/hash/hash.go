// Package hash provides the content hash used for message signatures and
// derived identifiers. SHA-1 is used for stable ids, not as a security
// primitive.
package hash

import (
	"crypto/sha1"
	"encoding/hex"
)

// SHA1Hex returns the lowercase hex SHA-1 digest of s.
func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
