// Package pathkey maps file paths to short, stable cache keys.
package pathkey

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/minio/highwayhash"
)

// Sentinel is the key returned for an empty path.
const Sentinel = "unknown"

// hashKey is the fixed 32 byte HighwayHash key. Changing it invalidates every
// cached thumbnail on disk.
var hashKey = []byte("savedeck/thumbnail-cache/key/v1!")

// Normalize returns the comparison form of a path: forward slashes only and
// lowercased. Two paths that normalize equal refer to the same history record.
func Normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

// Equal reports whether two paths refer to the same file.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Hash returns the cache key for path. It never returns an empty string.
func Hash(path string) string {
	if strings.TrimSpace(path) == "" {
		return Sentinel
	}

	sum := highwayhash.Sum64([]byte(Normalize(path)), hashKey)

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sum)
	return hex.EncodeToString(b[:])
}
