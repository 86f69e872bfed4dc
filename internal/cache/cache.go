// Package cache provides the injected key/value store backing the social
// batch cache: an in-memory map for tests and single-node setups, and a
// database-backed store that survives restarts.
package cache

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beaconlabs/beacon/internal/models"
)

// Entry is one cached value with its fetch time. Staleness is judged by
// the caller; the store never expires entries on its own.
type Entry struct {
	FetchedAt time.Time
	Data      []byte
}

// Store is the cache contract. Get returns (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Memory is a mutex-guarded in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *Memory) Set(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry
	return nil
}

// DB stores entries as rows, one per key, overwritten on every Set.
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Get(ctx context.Context, key string) (*Entry, error) {
	var row models.CacheEntry
	err := d.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &Entry{FetchedAt: row.FetchedAt, Data: row.Data}, nil
}

func (d *DB) Set(ctx context.Context, key string, entry Entry) error {
	row := models.CacheEntry{
		Key:       key,
		FetchedAt: entry.FetchedAt,
		Data:      entry.Data,
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
}
