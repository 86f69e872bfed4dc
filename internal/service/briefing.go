package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beaconlabs/beacon/internal/models"
)

// BriefingService writes a daily intelligence brief per brand: trends,
// the latest derived snapshot and recent decisions condensed by one LLM
// call into a short strategic summary.
type BriefingService struct {
	db     *gorm.DB
	llm    Completer
	market MarketSource
	logger *zap.Logger
}

func NewBriefingService(db *gorm.DB, llm Completer, market MarketSource, logger *zap.Logger) *BriefingService {
	return &BriefingService{db: db, llm: llm, market: market, logger: logger}
}

// GenerateAll generates briefs for every brand, isolating per-tenant
// failures.
func (s *BriefingService) GenerateAll(ctx context.Context, brands []models.Brand) {
	for _, brand := range brands {
		if err := s.Generate(ctx, brand); err != nil {
			s.logger.Error("Briefing generation failed",
				zap.String("tenant_id", brand.ID),
				zap.Error(err))
		}
	}
}

func (s *BriefingService) Generate(ctx context.Context, brand models.Brand) error {
	trends, err := s.market.TopicNews(ctx, brand.Topic, 5)
	if err != nil {
		s.logger.Warn("Briefing without trends", zap.String("tenant_id", brand.ID), zap.Error(err))
	}

	var snapshot models.SocialSnapshot
	hasSnapshot := s.db.WithContext(ctx).
		Where("tenant_id = ?", brand.ID).
		First(&snapshot).Error == nil

	var decisions []models.AgentDecision
	s.db.WithContext(ctx).
		Where("tenant_id = ?", brand.ID).
		Order("created_at DESC").
		Limit(10).
		Find(&decisions)

	var sb strings.Builder
	sb.WriteString("Write a concise daily intelligence brief for the brand \"")
	sb.WriteString(brand.DisplayName)
	sb.WriteString("\". Markdown, three sections: Narrative, Performance, Recommended Focus.\n")
	if len(trends) > 0 {
		sb.WriteString("\nTRENDS:\n")
		for _, trend := range trends {
			sb.WriteString(fmt.Sprintf("- %s (%s, %d interactions)\n", trend.Title, trend.Creator, trend.Interactions))
		}
	}
	if hasSnapshot {
		sb.WriteString(fmt.Sprintf("\nPERFORMANCE: %d posts observed, engagement rate %.3f, weekly impressions %d\n",
			snapshot.PostCount, snapshot.EngagementRate, snapshot.WeeklyImpressions))
	}
	if len(decisions) > 0 {
		sb.WriteString("\nRECENT DECISIONS:\n")
		for _, decision := range decisions {
			sb.WriteString(fmt.Sprintf("- %s [%s]: %s\n", decision.Action, decision.Status, decision.Reason))
		}
	}

	content, err := s.llm.Complete(ctx, sb.String())
	if err != nil {
		if err == ErrLLMDisabled {
			s.logger.Debug("Briefing skipped, LLM disabled", zap.String("tenant_id", brand.ID))
			return nil
		}
		return fmt.Errorf("briefing completion failed: %w", err)
	}

	report := models.BriefingReport{
		TenantID:    brand.ID,
		Content:     content,
		GeneratedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		UpdateAll: true,
	}).Create(&report).Error
	if err != nil {
		return fmt.Errorf("failed to store briefing: %w", err)
	}

	s.logger.Info("Briefing generated", zap.String("tenant_id", brand.ID))
	return nil
}
