// Package cache holds file content snapshots the watcher diffs against.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"
)

// Cache defines the interface for snapshot caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Len() int
}

// SnapshotKey generates a cache key from a file path
func SnapshotKey(path string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return "slopwatch:snapshot:v1:" + hex.EncodeToString(hash[:])
}
