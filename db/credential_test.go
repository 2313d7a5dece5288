package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/qodetech/pulsectl/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) db.CredentialRepository {
	t.Helper()
	gdb, err := db.Open(":memory:")
	require.NoError(t, err)
	return db.NewCredentialRepository(gdb)
}

func TestCredentialRepository_PutAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cred, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, repo.Put(ctx, "accessToken", "A1"))
	require.NoError(t, repo.Put(ctx, "accessToken", "A2"))

	cred, err = repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "A2", cred.Value)
}

func TestCredentialRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "accessToken", "A1"))
	require.NoError(t, repo.Put(ctx, "refreshToken", "R1"))

	require.NoError(t, repo.Delete(ctx, "accessToken"))
	cred, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Nil(t, cred)

	cred, err = repo.Get(ctx, "refreshToken")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "R1", cred.Value)

	require.NoError(t, repo.Delete(ctx, "accessToken", "refreshToken"))
	cred, err = repo.Get(ctx, "refreshToken")
	require.NoError(t, err)
	assert.Nil(t, cred)

	// Deleting what is already gone is fine.
	require.NoError(t, repo.Delete(ctx, "accessToken", "refreshToken"))
	require.NoError(t, repo.Delete(ctx, "missing"))
	require.NoError(t, repo.Delete(ctx))
}

func TestCredentialRepository_Uninitialized(t *testing.T) {
	repo := db.NewCredentialRepository(nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, repo.Put(ctx, "k", "v"))
	assert.Error(t, repo.Delete(ctx, "k"))
}

func TestInitAndCloseDB(t *testing.T) {
	db.Path = filepath.Join(t.TempDir(), "nested", "credentials.db")
	require.NoError(t, db.InitDB())
	require.NotNil(t, db.GetDB())

	repo := db.NewCredentialRepository(db.GetDB())
	require.NoError(t, repo.Put(context.Background(), "refreshToken", "R"))
	require.NoError(t, db.CloseDB())
}
