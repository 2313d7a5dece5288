package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential is a single secret stored under a well-known key (e.g. "accessToken").
type Credential struct {
	Name      string `gorm:"primaryKey" json:"name"`
	Value     string `json:"value"`
	UpdatedAt time.Time
}

// CredentialRepository defines decoupled operations for credential persistence.
type CredentialRepository interface {
	Get(ctx context.Context, key string) (*Credential, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// gormCredentialRepo is a GORM-backed implementation of CredentialRepository.
// Use constructor NewCredentialRepository to obtain an instance.
type gormCredentialRepo struct{ db *gorm.DB }

// NewCredentialRepository creates a CredentialRepository. Accepts *gorm.DB to avoid global access.
func NewCredentialRepository(db *gorm.DB) CredentialRepository { return &gormCredentialRepo{db: db} }

// Get returns nil, nil when no credential is stored under key.
func (r *gormCredentialRepo) Get(ctx context.Context, key string) (*Credential, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var cred Credential
	err := r.db.WithContext(ctx).First(&cred, "name = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *gormCredentialRepo) Put(ctx context.Context, key, value string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	cred := Credential{Name: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cred).Error
}

// Delete removes the given keys. Missing keys are not an error.
func (r *gormCredentialRepo) Delete(ctx context.Context, keys ...string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("name IN ?", keys).Delete(&Credential{}).Error
}
