package testutil

import "frameforge/internal/blobstore"

// NewTestImageStore returns an image store backed by an in-memory blob store.
func NewTestImageStore() *blobstore.ImageStore {
	return blobstore.NewImageStore(blobstore.NewMemoryStore())
}
