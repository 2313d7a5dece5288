package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/qodetech/pulsectl/db"
	"github.com/qodetech/pulsectl/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func backends(t *testing.T) map[string]store.KV {
	t.Helper()

	gdb, err := db.Open(":memory:")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	keyring.MockInit()

	return map[string]store.KV{
		"memory":  store.NewMemoryStore(),
		"sqlite":  store.NewDBStore(db.NewCredentialRepository(gdb)),
		"redis":   store.NewRedisStore(rdb, "pulsectl:test:"),
		"keyring": store.NewKeyringStore("pulsectl-test"),
	}
}

func TestTokens_AllBackends(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tokens := store.NewTokens(kv)

			_, ok, err := tokens.Pair(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, tokens.Save(ctx, store.TokenPair{AccessToken: "A1", RefreshToken: "R1"}))
			pair, ok, err := tokens.Pair(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, store.TokenPair{AccessToken: "A1", RefreshToken: "R1"}, pair)

			require.NoError(t, tokens.ClearAccess(ctx))
			access, err := tokens.Access(ctx)
			require.NoError(t, err)
			assert.Empty(t, access)
			refresh, err := tokens.Refresh(ctx)
			require.NoError(t, err)
			assert.Equal(t, "R1", refresh)

			// A refresh token alone does not count as logged in.
			_, ok, err = tokens.Pair(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, tokens.Clear(ctx))
			require.NoError(t, tokens.Clear(ctx), "clear on an empty store must not fail")

			refresh, err = tokens.Refresh(ctx)
			require.NoError(t, err)
			assert.Empty(t, refresh)
		})
	}
}

func TestTokens_SaveRejectsPartialPair(t *testing.T) {
	tokens := store.NewTokens(store.NewMemoryStore())
	err := tokens.Save(context.Background(), store.TokenPair{AccessToken: "A"})
	assert.Error(t, err)
}

type failingSetStore struct {
	*store.MemoryStore
	failKey string
}

func (f *failingSetStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestTokens_SaveClearsOnPartialWrite(t *testing.T) {
	ctx := context.Background()
	kv := &failingSetStore{MemoryStore: store.NewMemoryStore(), failKey: store.RefreshTokenKey}
	tokens := store.NewTokens(kv)

	err := tokens.Save(ctx, store.TokenPair{AccessToken: "A", RefreshToken: "R"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	access, err := tokens.Access(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tokens := store.NewTokens(store.NewRedisStore(rdb, "app:"))
	require.NoError(t, tokens.SetAccess(context.Background(), "A"))

	v, err := mr.Get("app:accessToken")
	require.NoError(t, err)
	assert.Equal(t, "A", v)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", store.Mask(""))
	assert.Equal(t, "***", store.Mask("abc"))
	assert.Equal(t, "abcdef…", store.Mask("abcdefghijkl"))
}
