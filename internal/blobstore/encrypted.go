package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"frameforge/internal/encryption"
)

// PassphraseFunc supplies the passphrase that unlocks the private key.
type PassphraseFunc func() (string, error)

// EncryptedStore encrypts blobs before handing them to the inner store.
// The private key is unlocked on the first Get and kept for the lifetime of
// the store; writes never need it.
type EncryptedStore struct {
	inner      BlobStore
	enc        encryption.Encryptor
	passphrase PassphraseFunc

	mu  sync.Mutex
	dec encryption.Decryptor
}

var _ BlobStore = (*EncryptedStore)(nil)

func NewEncryptedStore(inner BlobStore, enc encryption.Encryptor, passphrase PassphraseFunc) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc, passphrase: passphrase}
}

func (s *EncryptedStore) Put(key string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	if n != size {
		return sizeMismatch(size, n)
	}

	var ciphertext bytes.Buffer
	if err := s.enc.Encrypt(&buf, &ciphertext); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return s.inner.Put(key, &ciphertext, int64(ciphertext.Len()))
}

func (s *EncryptedStore) Get(key string, w io.Writer) error {
	var ciphertext bytes.Buffer
	if err := s.inner.Get(key, &ciphertext); err != nil {
		return err
	}
	dec, err := s.decryptor()
	if err != nil {
		return err
	}
	if err := dec.Decrypt(&ciphertext, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", key, err)
	}
	return nil
}

func (s *EncryptedStore) decryptor() (encryption.Decryptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec != nil {
		return s.dec, nil
	}
	if s.passphrase == nil {
		return nil, fmt.Errorf("no passphrase source configured")
	}
	pass, err := s.passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dec, err := s.enc.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking key: %w", err)
	}
	s.dec = dec
	return dec, nil
}

func (s *EncryptedStore) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *EncryptedStore) Keys(prefix string) ([]string, error) {
	return s.inner.Keys(prefix)
}

func (s *EncryptedStore) ValidateSetup() error {
	if !s.enc.IsConfigured() {
		return fmt.Errorf("encryption keys are not set up")
	}
	return s.inner.ValidateSetup()
}
