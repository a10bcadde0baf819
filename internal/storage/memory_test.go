package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageWriteRead(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	path, err := m.Write(ctx, "uploads/docs", "a.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/docs/a.txt", path)

	data, err := m.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	exists, err := m.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStorageMoveDirectory(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, m.MakeDirectory(ctx, "uploads/old"))
	require.NoError(t, m.MakeDirectory(ctx, "uploads/old/sub"))
	_, err := m.Write(ctx, "uploads/old/sub", "a.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, m.Move(ctx, "uploads/old", "uploads/new"))

	data, err := m.Read(ctx, "uploads/new/sub/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	exists, err := m.Exists(ctx, "uploads/old")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStorageMoveMissing(t *testing.T) {
	m := NewMemoryStorage()
	err := m.Move(context.Background(), "uploads/nope", "uploads/other")
	assert.Error(t, err)
}

func TestMemoryStorageDeleteDirectory(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, m.MakeDirectory(ctx, "uploads/docs"))
	_, err := m.Write(ctx, "uploads/docs", "a.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, m.DeleteDirectory(ctx, "uploads/docs"))

	exists, err := m.Exists(ctx, "uploads/docs/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStorageDeleteIdempotent(t *testing.T) {
	m := NewMemoryStorage()
	assert.NoError(t, m.Delete(context.Background(), "uploads/missing.txt"))
}
