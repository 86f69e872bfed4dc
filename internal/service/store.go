package service

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beaconlabs/beacon/internal/models"
)

// GormSocialStore backs the sync cache with Postgres rows. The composite
// unique index on (tenant_id, external_id) plus ON CONFLICT DO NOTHING
// makes InsertMemory idempotent under concurrent writers.
type GormSocialStore struct {
	db *gorm.DB
}

func NewGormSocialStore(db *gorm.DB) *GormSocialStore {
	return &GormSocialStore{db: db}
}

func (s *GormSocialStore) MemoryExists(ctx context.Context, tenantID, externalID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MemoryRecord{}).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormSocialStore) InsertMemory(ctx context.Context, record *models.MemoryRecord) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormSocialStore) SaveSnapshot(ctx context.Context, snapshot *models.SocialSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		UpdateAll: true,
	}).Create(snapshot).Error
}
