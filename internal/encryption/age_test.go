package encryption

import (
	"bytes"
	"path/filepath"
	"testing"

	"frameforge/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "frameforge.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "frameforge.key"),
	})
}

func roundTrip(t *testing.T, e Encryptor, passphrase string, input []byte) []byte {
	t.Helper()
	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if len(input) > 0 && bytes.Equal(encrypted.Bytes(), input) {
		t.Error("encrypted output is identical to plaintext")
	}

	dec, err := e.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var decrypted bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	return decrypted.Bytes()
}

func TestAgeEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if err := e.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "data uri", input: []byte("data:image/png;base64,iVBORw0KGgo=")},
		{name: "empty", input: []byte{}},
		{name: "large payload", input: bytes.Repeat([]byte("QUJDREVG"), 20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestAgeEncryptor(t)
			if err := e.Setup("pw"); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			if got := roundTrip(t, e, "pw", tt.input); !bytes.Equal(got, tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", len(got), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_FreshInstanceReadsKeysFromDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "k.pub"),
		PrivateKeyPath: filepath.Join(dir, "k.key"),
	}
	if err := NewAgeEncryptor(cfg).Setup("pw"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	input := []byte("payload")
	if got := roundTrip(t, NewAgeEncryptor(cfg), "pw", input); !bytes.Equal(got, input) {
		t.Errorf("round-trip = %q, want %q", got, input)
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong-passphrase"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
}

func TestAgeEncryptor_ChangePassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if err := e.Setup("old"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("before")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if err := e.ChangePassphrase("wrong", "new"); err == nil {
		t.Fatal("ChangePassphrase() with wrong passphrase should return error")
	}
	if err := e.ChangePassphrase("old", "new"); err != nil {
		t.Fatalf("ChangePassphrase() error = %v", err)
	}
	if _, err := e.Unlock("old"); err == nil {
		t.Error("Unlock(old) should fail after ChangePassphrase")
	}

	dec, err := e.Unlock("new")
	if err != nil {
		t.Fatalf("Unlock(new) error = %v", err)
	}
	var out bytes.Buffer
	if err := dec.Decrypt(&encrypted, &out); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if out.String() != "before" {
		t.Errorf("Decrypt() = %q, want %q", out.String(), "before")
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if _, err := e.Unlock("passphrase"); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestAgeEncryptor_EmptyPassphrase(t *testing.T) {
	t.Parallel()
	if err := newTestAgeEncryptor(t).Setup(""); err == nil {
		t.Error("Setup(\"\") should return error")
	}
}

func configFor(typ string) config.EncryptionConfig {
	return config.EncryptionConfig{Type: typ, PublicKeyPath: "k.pub", PrivateKeyPath: "k.key"}
}
