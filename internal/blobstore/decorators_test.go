package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"frameforge/internal/config"
	"frameforge/internal/encryption"
)

// countingStore counts Get calls on the wrapped store.
type countingStore struct {
	BlobStore
	gets int
}

func (c *countingStore) Get(key string, w io.Writer) error {
	c.gets++
	return c.BlobStore.Get(key, w)
}

func TestCachedStore(t *testing.T) {
	exerciseStore(t, NewCachedStore(NewMemoryStore(), time.Minute))
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	inner := &countingStore{BlobStore: NewMemoryStore()}
	c := NewCachedStore(inner, time.Minute)

	if err := c.Put("image-1", strings.NewReader("v1"), 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	for range 3 {
		var buf bytes.Buffer
		if err := c.Get("image-1", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if inner.gets != 1 {
		t.Errorf("inner gets = %d, want 1", inner.gets)
	}

	if err := c.Put("image-1", strings.NewReader("v2"), 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	var buf bytes.Buffer
	if err := c.Get("image-1", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "v2" {
		t.Errorf("Get() after Put = %q, want v2", buf.String())
	}
	if inner.gets != 2 {
		t.Errorf("inner gets = %d, want 2", inner.gets)
	}
}

func TestEncryptedStore(t *testing.T) {
	exerciseStore(t, NewEncryptedStore(NewMemoryStore(), encryption.NewTestEncryptor(), func() (string, error) { return "", nil }))
}

func TestEncryptedStore_StoresCiphertext(t *testing.T) {
	dir := t.TempDir()
	enc := encryption.NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  dir + "/k.pub",
		PrivateKeyPath: dir + "/k.key",
	})
	if err := enc.Setup("pw"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	inner := NewMemoryStore()
	asked := 0
	s := NewEncryptedStore(inner, enc, func() (string, error) {
		asked++
		return "pw", nil
	})

	payload := "data:image/png;base64,QUJD"
	if err := s.Put("image-1", strings.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if asked != 0 {
		t.Errorf("passphrase requested %d times during Put, want 0", asked)
	}

	var raw bytes.Buffer
	if err := inner.Get("image-1", &raw); err != nil {
		t.Fatalf("inner Get() error = %v", err)
	}
	if strings.Contains(raw.String(), "base64") {
		t.Error("inner store holds plaintext")
	}

	for range 2 {
		var buf bytes.Buffer
		if err := s.Get("image-1", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != payload {
			t.Errorf("Get() = %q, want %q", buf.String(), payload)
		}
	}
	if asked != 1 {
		t.Errorf("passphrase requested %d times, want 1", asked)
	}
}

func TestEncryptedStore_PassphraseError(t *testing.T) {
	inner := NewMemoryStore()
	s := NewEncryptedStore(inner, encryption.NewTestEncryptor(), func() (string, error) {
		return "", fmt.Errorf("no terminal")
	})
	if err := s.Put("image-1", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	var buf bytes.Buffer
	err := s.Get("image-1", &buf)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want passphrase failure", err)
	}
}

func TestNewBlobStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BlobStoreConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.BlobStoreConfig{Type: "memory"}},
		{name: "memory cached", cfg: config.BlobStoreConfig{Type: "memory", CacheTTL: "1m"}},
		{name: "memory encrypted", cfg: config.BlobStoreConfig{Type: "memory", Encrypt: true}},
		{name: "filesystem", cfg: config.BlobStoreConfig{Type: "filesystem", FSRoot: t.TempDir()}},
		{name: "filesystem without root", cfg: config.BlobStoreConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.BlobStoreConfig{Type: "s3"}, wantErr: true},
		{name: "bad ttl", cfg: config.BlobStoreConfig{Type: "memory", CacheTTL: "later"}, wantErr: true},
		{name: "unknown", cfg: config.BlobStoreConfig{Type: "tape"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewBlobStoreFromConfig(tt.cfg, encryption.NewTestEncryptor(), nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBlobStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if err := got.ValidateSetup(); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}
