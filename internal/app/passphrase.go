package app

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"frameforge/internal/config"
	"frameforge/internal/encryption"
)

// ReadPassphrase returns $FRAMEFORGE_PASSPHRASE when set and otherwise asks
// on the terminal without echo.
func ReadPassphrase(prompt string) (string, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not set and stdin is not a terminal", EnvPassphrase)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// SetPassphrase creates the blob encryption key pair protected by
// newPassphrase, or re-protects the existing private key when one exists.
// It reports whether a new key pair was created.
func SetPassphrase(cfg config.EncryptionConfig, oldPassphrase, newPassphrase string) (created bool, err error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return false, err
	}
	if !enc.IsConfigured() {
		if err := enc.Setup(newPassphrase); err != nil {
			return false, fmt.Errorf("creating key pair: %w", err)
		}
		return true, nil
	}
	changer, ok := enc.(encryption.PassphraseChanger)
	if !ok {
		return false, errors.New("the configured encryptor cannot change its passphrase")
	}
	if err := changer.ChangePassphrase(oldPassphrase, newPassphrase); err != nil {
		return false, err
	}
	return false, nil
}
