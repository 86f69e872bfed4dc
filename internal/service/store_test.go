package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs/beacon/internal/models"
)

func newTestGormSocialStore(t *testing.T) *GormSocialStore {
	t.Helper()
	db := newTestDB(t, &models.MemoryRecord{}, &models.SocialSnapshot{})
	return NewGormSocialStore(db)
}

func TestInsertMemoryConflictIsIdempotent(t *testing.T) {
	store := newTestGormSocialStore(t)

	record := models.MemoryRecord{TenantID: "acme", ExternalID: "p1", Content: "hello"}
	inserted, err := store.InsertMemory(context.Background(), &record)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same (tenant, external id) again: the unique index swallows it.
	dup := models.MemoryRecord{TenantID: "acme", ExternalID: "p1", Content: "hello again"}
	inserted, err = store.InsertMemory(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	require.NoError(t, store.db.Model(&models.MemoryRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The same external id under another tenant is a distinct record.
	other := models.MemoryRecord{TenantID: "globex", ExternalID: "p1", Content: "hello"}
	inserted, err = store.InsertMemory(context.Background(), &other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryExists(t *testing.T) {
	store := newTestGormSocialStore(t)

	exists, err := store.MemoryExists(context.Background(), "acme", "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.InsertMemory(context.Background(), &models.MemoryRecord{TenantID: "acme", ExternalID: "p1"})
	require.NoError(t, err)

	exists, err = store.MemoryExists(context.Background(), "acme", "p1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSaveSnapshotUpserts(t *testing.T) {
	store := newTestGormSocialStore(t)

	require.NoError(t, store.SaveSnapshot(context.Background(), &models.SocialSnapshot{
		TenantID: "acme", PostCount: 2, WeeklyImpressions: 4000,
	}))
	require.NoError(t, store.SaveSnapshot(context.Background(), &models.SocialSnapshot{
		TenantID: "acme", PostCount: 5, WeeklyImpressions: 9000,
	}))

	var snapshots []models.SocialSnapshot
	require.NoError(t, store.db.Find(&snapshots).Error)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 5, snapshots[0].PostCount)
	assert.Equal(t, 9000, snapshots[0].WeeklyImpressions)
}
