// Package encryption protects image payloads at rest.
//
// Encryption needs only the public key, so generation and uploads never ask
// for a passphrase. Reading an encrypted payload back needs the private key,
// which is itself encrypted with the user's passphrase and unlocked once per
// process.
package encryption

import "io"

// Encryptor encrypts payloads and unlocks the matching Decryptor.
type Encryptor interface {
	// Setup generates the key pair. Called by `frameforge config passphrase`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key. It fails on a wrong passphrase.
	Unlock(passphrase string) (Decryptor, error)

	// IsConfigured reports whether the key pair exists.
	IsConfigured() bool
}

// Decryptor holds an unlocked private key in memory only.
type Decryptor interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// PassphraseChanger re-protects an existing private key under a new
// passphrase without changing the key pair.
type PassphraseChanger interface {
	ChangePassphrase(oldPassphrase, newPassphrase string) error
}
