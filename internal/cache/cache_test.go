package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMissReturnsNil(t *testing.T) {
	store := NewMemory()

	entry, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemorySetGet(t *testing.T) {
	store := NewMemory()
	fetched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Set(context.Background(), "mentions:acme", Entry{
		FetchedAt: fetched,
		Data:      []byte(`{"posts":[]}`),
	}))

	entry, err := store.Get(context.Background(), "mentions:acme")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.FetchedAt.Equal(fetched))
	assert.JSONEq(t, `{"posts":[]}`, string(entry.Data))
}

func TestMemoryOverwrite(t *testing.T) {
	store := NewMemory()

	require.NoError(t, store.Set(context.Background(), "k", Entry{Data: []byte("old")}))
	require.NoError(t, store.Set(context.Background(), "k", Entry{Data: []byte("new")}))

	entry, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(entry.Data))
}
