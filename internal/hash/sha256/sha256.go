// Package sha256 derives stable, filesystem-safe names for store keys.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key returns the hex SHA-256 digest of key.
func Key(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ObjectName returns the JSON object name used to store key.
func ObjectName(key string) string {
	return Key(key) + ".json"
}
