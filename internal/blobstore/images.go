package blobstore

import (
	"errors"
	"fmt"
	"strings"

	"frameforge/internal/ff"
)

// ImagePrefix is the key prefix shared by all frame image blobs.
const ImagePrefix = "image-"

// ImageStore adapts a BlobStore to ff.ImageStore.
type ImageStore struct {
	blobs BlobStore
}

var _ ff.ImageStore = (*ImageStore)(nil)

func NewImageStore(blobs BlobStore) *ImageStore {
	return &ImageStore{blobs: blobs}
}

func (s *ImageStore) SaveImage(frameID, payload string) error {
	if err := s.blobs.Put(ff.ImageKey(frameID), strings.NewReader(payload), int64(len(payload))); err != nil {
		return fmt.Errorf("saving image for frame %s: %w", frameID, err)
	}
	return nil
}

func (s *ImageStore) LoadImage(frameID string) (string, bool, error) {
	var buf strings.Builder
	err := s.blobs.Get(ff.ImageKey(frameID), &buf)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading image for frame %s: %w", frameID, err)
	}
	return buf.String(), true, nil
}

func (s *ImageStore) DeleteImage(frameID string) error {
	if err := s.blobs.Delete(ff.ImageKey(frameID)); err != nil {
		return fmt.Errorf("deleting image for frame %s: %w", frameID, err)
	}
	return nil
}

// FrameIDs returns the ids of all frames that have a stored image.
func (s *ImageStore) FrameIDs() ([]string, error) {
	keys, err := s.blobs.Keys(ImagePrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, ImagePrefix)
	}
	return ids, nil
}
