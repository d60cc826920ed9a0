// Package filex holds filesystem helpers for locating binary content on
// local disk.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// Shard layout for content-addressed paths: three directory levels of two
// hex characters each, then the full digest as the filename.
const (
	shardWidth  = 2
	shardLevels = 3
)

// ShardPath returns the relative content-addressed path of digest, e.g.
// "abcdef123456" -> "ab/cd/ef/abcdef123456". Digests too short to fill every
// shard level are rejected.
func ShardPath(digest string) (string, error) {
	if len(digest) < shardWidth*shardLevels {
		return "", fmt.Errorf("digest %q too short to shard", digest)
	}
	parts := make([]string, 0, shardLevels+1)
	for i := 0; i < shardLevels; i++ {
		parts = append(parts, digest[i*shardWidth:(i+1)*shardWidth])
	}
	parts = append(parts, digest)
	return filepath.Join(parts...), nil
}

// RegularFile reports whether path names an existing regular file, and its
// size when it does.
func RegularFile(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return 0, false
	}
	return fi.Size(), true
}

// OpenRegular opens path for streaming. It fails when path is not a regular
// file.
func OpenRegular(path string) (*os.File, int64, error) {
	size, ok := RegularFile(path)
	if !ok {
		return nil, 0, fmt.Errorf("not a regular file: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	return f, size, nil
}
