package store

import (
	"context"
	"errors"
	"fmt"
)

// Keys under which the token pair is persisted.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// KV is an opaque secure key-value store. Get returns "" and a nil error when
// the key is absent; Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// TokenPair is the access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Tokens is the typed view over a KV used by the rest of the module.
type Tokens struct {
	kv KV
}

// NewTokens wraps kv.
func NewTokens(kv KV) *Tokens {
	return &Tokens{kv: kv}
}

func (t *Tokens) Access(ctx context.Context) (string, error) {
	return t.kv.Get(ctx, AccessTokenKey)
}

func (t *Tokens) Refresh(ctx context.Context) (string, error) {
	return t.kv.Get(ctx, RefreshTokenKey)
}

func (t *Tokens) SetAccess(ctx context.Context, token string) error {
	return t.kv.Set(ctx, AccessTokenKey, token)
}

func (t *Tokens) SetRefresh(ctx context.Context, token string) error {
	return t.kv.Set(ctx, RefreshTokenKey, token)
}

// Save persists both tokens. If the second write fails the store is cleared so a
// half-written pair is never left behind.
func (t *Tokens) Save(ctx context.Context, pair TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("token pair must contain both access and refresh token")
	}
	if err := t.SetAccess(ctx, pair.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := t.SetRefresh(ctx, pair.RefreshToken); err != nil {
		return errors.Join(fmt.Errorf("failed to store refresh token: %w", err), t.Clear(ctx))
	}
	return nil
}

// Pair returns the stored pair. ok is false when there is no access token,
// regardless of whether a refresh token is present.
func (t *Tokens) Pair(ctx context.Context) (pair TokenPair, ok bool, err error) {
	if pair.AccessToken, err = t.Access(ctx); err != nil {
		return TokenPair{}, false, err
	}
	if pair.RefreshToken, err = t.Refresh(ctx); err != nil {
		return TokenPair{}, false, err
	}
	return pair, pair.AccessToken != "", nil
}

// Clear removes both tokens. Clearing an empty store is not an error.
func (t *Tokens) Clear(ctx context.Context) error {
	return errors.Join(
		t.kv.Delete(ctx, AccessTokenKey),
		t.kv.Delete(ctx, RefreshTokenKey),
	)
}

// ClearAccess removes only the access token.
func (t *Tokens) ClearAccess(ctx context.Context) error {
	return t.kv.Delete(ctx, AccessTokenKey)
}

// Mask shortens a secret for display and logs.
func Mask(token string) string {
	const keep = 6
	if token == "" {
		return ""
	}
	if len(token) <= keep {
		return "***"
	}
	return token[:keep] + "…"
}
