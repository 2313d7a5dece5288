package store

import (
	"context"

	"github.com/qodetech/pulsectl/db"
)

// DBStore persists credentials in the local SQLite database.
type DBStore struct {
	repo db.CredentialRepository
}

func NewDBStore(repo db.CredentialRepository) *DBStore {
	return &DBStore{repo: repo}
}

func (s *DBStore) Get(ctx context.Context, key string) (string, error) {
	cred, err := s.repo.Get(ctx, key)
	if err != nil || cred == nil {
		return "", err
	}
	return cred.Value, nil
}

func (s *DBStore) Set(ctx context.Context, key, value string) error {
	return s.repo.Put(ctx, key, value)
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
