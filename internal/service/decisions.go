package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beaconlabs/beacon/internal/models"
)

const backupKey = "latest"

// DecisionStore persists candidate decisions and runs the retention and
// backup policies over them.
type DecisionStore interface {
	Ping(ctx context.Context) error
	Insert(ctx context.Context, decision *models.AgentDecision) error
	Recent(ctx context.Context, limit int) ([]models.AgentDecision, error)
	Backup(ctx context.Context, limit int) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// DecisionService is the Postgres-backed DecisionStore. Decisions are
// plain inserts; repeat proposals across cycles are accepted since
// decisions are advisory.
type DecisionService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDecisionService(db *gorm.DB, logger *zap.Logger) *DecisionService {
	return &DecisionService{db: db, logger: logger}
}

func (s *DecisionService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *DecisionService) Insert(ctx context.Context, decision *models.AgentDecision) error {
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.Status == "" {
		decision.Status = models.StatusPending
	}
	if err := s.db.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// Recent is the read-through projection of the newest decisions, replacing
// the capped local file the original design dual-wrote.
func (s *DecisionService) Recent(ctx context.Context, limit int) ([]models.AgentDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	var decisions []models.AgentDecision
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&decisions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}

// Backup snapshots the newest decisions into a single overwritten blob row
// before the retention sweep can touch them.
func (s *DecisionService) Backup(ctx context.Context, limit int) error {
	decisions, err := s.Recent(ctx, limit)
	if err != nil {
		return err
	}

	data, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("failed to marshal backup: %w", err)
	}

	row := models.DecisionBackup{
		Key:   backupKey,
		Data:  data,
		Count: len(decisions),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	s.logger.Info("Decision backup written", zap.Int("count", len(decisions)))
	return nil
}

// Prune deletes decisions created strictly before the cutoff. Rows at
// exactly the cutoff are retained.
func (s *DecisionService) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AgentDecision{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
