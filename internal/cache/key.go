package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateSimpleKey generates a cache key from method and path.
func GenerateSimpleKey(method, path string) string {
	return method + ":" + path
}

// JoinKey joins key parts with ":".
func JoinKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// HashKey hashes a key to a fixed-length hex string.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
