package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedStore is a read-through cache in front of another store. Put and
// Delete invalidate the cached entry before touching the inner store.
type CachedStore struct {
	inner BlobStore
	cache *cache.Cache
}

var _ BlobStore = (*CachedStore)(nil)

func NewCachedStore(inner BlobStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedStore) Put(key string, r io.Reader, size int64) error {
	c.cache.Delete(key)
	return c.inner.Put(key, r, size)
}

func (c *CachedStore) Get(key string, w io.Writer) error {
	if v, ok := c.cache.Get(key); ok {
		if _, err := w.Write(v.([]byte)); err != nil {
			return fmt.Errorf("failed to write blob: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := c.inner.Get(key, &buf); err != nil {
		return err
	}
	data := buf.Bytes()
	c.cache.Set(key, data, cache.DefaultExpiration)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

func (c *CachedStore) Delete(key string) error {
	c.cache.Delete(key)
	return c.inner.Delete(key)
}

func (c *CachedStore) Keys(prefix string) ([]string, error) {
	return c.inner.Keys(prefix)
}

func (c *CachedStore) ValidateSetup() error {
	return c.inner.ValidateSetup()
}
