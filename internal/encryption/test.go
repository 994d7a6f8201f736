package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrWrongPassphrase is returned by TestEncryptor.Unlock for a passphrase
// other than the one given to Setup.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// testHeader marks payloads written by TestEncryptor.
var testHeader = []byte("FFENC\x00\x00\x00")

// TestEncryptor is a deterministic stand-in for tests and throwaway setups.
// It prepends a fixed header and performs no cryptography. Until Setup is
// called any passphrase unlocks it.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
	setup      bool
}

var (
	_ Encryptor         = (*TestEncryptor)(nil)
	_ PassphraseChanger = (*TestEncryptor)(nil)
)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase, e.setup = passphrase, true
	return nil
}

func (e *TestEncryptor) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	if err := e.check(oldPassphrase); err != nil {
		return err
	}
	return e.Setup(newPassphrase)
}

func (e *TestEncryptor) check(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.setup && passphrase != e.passphrase {
		return ErrWrongPassphrase
	}
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (Decryptor, error) {
	if err := e.check(passphrase); err != nil {
		return nil, err
	}
	return testDecryptor{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

type testDecryptor struct{}

func (testDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
