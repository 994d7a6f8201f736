// Package blobstore stores opaque payloads by key. Image payloads for frames
// live here under ff.ImageKey(frameID).
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when no blob exists for the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore is a flat key/value store for payloads.
type BlobStore interface {
	// Put stores size bytes read from r under key, replacing any previous blob.
	Put(key string, r io.Reader, size int64) error

	// Get writes the blob to w. Returns an error wrapping ErrNotFound when absent.
	Get(key string, w io.Writer) error

	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists the keys starting with prefix in lexical order.
	Keys(prefix string) ([]string, error)

	// ValidateSetup verifies the backing storage is reachable.
	ValidateSetup() error
}

// validKey rejects keys that could escape a directory or prefix.
func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key must not be empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

func sizeMismatch(want int64, got int64) error {
	return fmt.Errorf("size mismatch: expected %d bytes, got %d", want, got)
}
