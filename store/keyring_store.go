package store

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps credentials in the operating system's secret service
// (Keychain, Credential Manager, or the freedesktop Secret Service).
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Get(_ context.Context, key string) (string, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *KeyringStore) Set(_ context.Context, key, value string) error {
	return keyring.Set(s.service, key, value)
}

func (s *KeyringStore) Delete(_ context.Context, key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
