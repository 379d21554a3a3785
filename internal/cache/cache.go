package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NoExpiration keeps an entry until it is deleted or the cache is cleared
const NoExpiration time.Duration = -1

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from its parts
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "todolens:v1:" + hex.EncodeToString(hash[:])
}

// SnapshotKey is the key under which a packed snapshot blob is stored
func SnapshotKey(id string) string {
	return "todolens:v1:snapshot:" + id
}

// QueryKey is the key under which a grep result is memoized
func QueryKey(snapshot, pattern string, contextLines int) string {
	return CacheKey("grep", snapshot, pattern, strconv.Itoa(contextLines))
}
