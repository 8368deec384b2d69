package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/decentradns/internal/storage"
)

func TestKeyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	store := NewKeyStore(backend)

	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	plain, err := store.CreateAPIKey(ctx, "deploy")
	require.NoError(t, err)
	assert.True(t, LooksLikeAPIKey(plain))

	key, err := store.ValidateAPIKey(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, "deploy", key.Name)
	assert.NotNil(t, key.LastUsedAt)

	// The plaintext key never reaches storage.
	raw, err := backend.Read(ctx, storage.APIKeysKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), plain)

	keys, err = store.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	require.NoError(t, store.RevokeAPIKey(ctx, keys[0].ID))
	_, err = store.ValidateAPIKey(ctx, plain)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.ErrorIs(t, store.RevokeAPIKey(ctx, keys[0].ID), ErrKeyNotFound)
}

func TestKeyStore_RejectsMalformed(t *testing.T) {
	store := NewKeyStore(storage.NewMemoryBackend())
	_, err := store.ValidateAPIKey(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
