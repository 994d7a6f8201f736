package blobstore

import (
	"context"
	"fmt"

	"frameforge/internal/config"
	"frameforge/internal/encryption"
)

// NewBlobStoreFromConfig creates the configured backend and layers the
// encryption and cache decorators on top. The cache holds plaintext, so it
// sits outside the encryption layer.
func NewBlobStoreFromConfig(cfg config.BlobStoreConfig, enc encryption.Encryptor, passphrase PassphraseFunc) (BlobStore, error) {
	var store BlobStore
	switch cfg.Type {
	case "memory":
		store = NewMemoryStore()
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem blob store requires fs_root to be set")
		}
		fs, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		store = fs
	case "s3":
		s3, err := NewS3Store(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		store = s3
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}

	if cfg.Encrypt {
		if enc == nil {
			return nil, fmt.Errorf("blob encryption requires an encryptor")
		}
		store = NewEncryptedStore(store, enc, passphrase)
	}

	ttl, err := config.ParseDuration("cache_ttl", cfg.CacheTTL, 0)
	if err != nil {
		return nil, err
	}
	if ttl > 0 {
		store = NewCachedStore(store, ttl)
	}
	return store, nil
}
