// Package credential stores IMAP passwords in the system keyring so
// they never have to live in configuration files. Entries are keyed
// imap/<account> under the mailcheck service.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailcheck"

func imapKey(account string) string {
	return "imap/" + account
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailcheck/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailcheck-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// GetPassword retrieves the stored IMAP password for an account.
// Absence is reported through IsNotFound, not a separate return.
func GetPassword(account string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(imapKey(account))
	if err != nil {
		return "", fmt.Errorf("getting credential for %q: %w", account, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the IMAP password for an account.
func SetPassword(account, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  imapKey(account),
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("setting credential for %q: %w", account, err)
	}
	return nil
}

// DeletePassword removes the stored IMAP password for an account.
func DeletePassword(account string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(imapKey(account)); err != nil {
		return fmt.Errorf("deleting credential for %q: %w", account, err)
	}
	return nil
}

// IsNotFound reports whether err means the keyring has no entry, as
// opposed to the keyring being unavailable.
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound)
}
