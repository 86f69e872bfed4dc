package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/cache"
	"github.com/beaconlabs/beacon/internal/models"
)

// SocialStore is the durable side of the sync cache: idempotent memory
// inserts and the derived-metrics snapshot.
type SocialStore interface {
	MemoryExists(ctx context.Context, tenantID, externalID string) (bool, error)
	InsertMemory(ctx context.Context, record *models.MemoryRecord) (bool, error)
	SaveSnapshot(ctx context.Context, snapshot *models.SocialSnapshot) error
}

// SocialService fetches mentions per tenant, collapses redundant provider
// calls behind a TTL cache, and dedup-inserts fresh posts into the store.
type SocialService struct {
	scraper   Scraper
	store     SocialStore
	cache     cache.Store
	logger    *zap.Logger
	ttl       time.Duration
	maxItems  int
	syncDelay time.Duration
	now       func() time.Time
}

func NewSocialService(scraper Scraper, store SocialStore, batchCache cache.Store, logger *zap.Logger, ttl time.Duration, maxItems int, syncDelay time.Duration) *SocialService {
	return &SocialService{
		scraper:   scraper,
		store:     store,
		cache:     batchCache,
		logger:    logger,
		ttl:       ttl,
		maxItems:  maxItems,
		syncDelay: syncDelay,
		now:       time.Now,
	}
}

func (s *SocialService) cacheKey(brand models.Brand) string {
	return "mentions:" + strings.ToLower(brand.ID)
}

// GetMentions returns the cached batch while it is fresh, otherwise
// scrapes, ingests and caches a new one. Provider failure yields an empty
// list; the next call retries (no negative caching).
func (s *SocialService) GetMentions(ctx context.Context, brand models.Brand) []models.SocialPost {
	key := s.cacheKey(brand)

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache read failed", zap.String("tenant_id", brand.ID), zap.Error(err))
	}
	if entry != nil && s.now().Sub(entry.FetchedAt) < s.ttl {
		var batch models.CachedBatch
		if err := json.Unmarshal(entry.Data, &batch); err == nil {
			return batch.Posts
		}
		s.logger.Warn("Discarding corrupt cache entry", zap.String("tenant_id", brand.ID))
	}

	posts, err := s.fetchAndStore(ctx, brand)
	if err != nil {
		s.logger.Error("Failed to fetch mentions",
			zap.String("tenant_id", brand.ID),
			zap.String("handle", brand.ExternalHandle),
			zap.Error(err))
		return []models.SocialPost{}
	}
	return posts
}

// SyncBrand forces a fresh scrape for one tenant regardless of TTL and
// returns the number of newly stored records.
func (s *SocialService) SyncBrand(ctx context.Context, brand models.Brand) (int, error) {
	posts, err := s.scraper.Scrape(ctx, brand.ExternalHandle, s.maxItems)
	if err != nil {
		return 0, fmt.Errorf("scrape failed for %s: %w", brand.ID, err)
	}

	inserted := s.ingest(ctx, brand.ID, posts)
	s.storeBatch(ctx, brand, posts)
	return inserted, nil
}

// SyncAll scrapes every tenant sequentially with a fixed delay between
// tenants to respect provider rate limits. One tenant failing never stops
// the rest.
func (s *SocialService) SyncAll(ctx context.Context, brands []models.Brand) {
	s.logger.Info("Starting social sync", zap.Int("tenants", len(brands)))

	for i, brand := range brands {
		if i > 0 && s.syncDelay > 0 {
			select {
			case <-ctx.Done():
				s.logger.Info("Social sync cancelled")
				return
			case <-time.After(s.syncDelay):
			}
		}

		inserted, err := s.SyncBrand(ctx, brand)
		if err != nil {
			s.logger.Error("Tenant sync failed",
				zap.String("tenant_id", brand.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("Tenant synced",
			zap.String("tenant_id", brand.ID),
			zap.Int("new_records", inserted))
	}

	s.logger.Info("Social sync completed")
}

func (s *SocialService) fetchAndStore(ctx context.Context, brand models.Brand) ([]models.SocialPost, error) {
	posts, err := s.scraper.Scrape(ctx, brand.ExternalHandle, s.maxItems)
	if err != nil {
		return nil, err
	}

	s.ingest(ctx, brand.ID, posts)
	s.storeBatch(ctx, brand, posts)
	return posts, nil
}

func (s *SocialService) storeBatch(ctx context.Context, brand models.Brand, posts []models.SocialPost) {
	batch := models.CachedBatch{
		TenantID:  strings.ToLower(brand.ID),
		FetchedAt: s.now(),
		Posts:     posts,
	}
	data, err := json.Marshal(batch)
	if err != nil {
		s.logger.Error("Failed to marshal batch", zap.String("tenant_id", brand.ID), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(brand), cache.Entry{FetchedAt: batch.FetchedAt, Data: data}); err != nil {
		s.logger.Warn("Cache write failed", zap.String("tenant_id", brand.ID), zap.Error(err))
	}
}

// ingest dedup-inserts the freshly scraped posts and refreshes the derived
// metrics snapshot. Returns the number of records actually inserted.
func (s *SocialService) ingest(ctx context.Context, tenantID string, posts []models.SocialPost) int {
	inserted := 0
	for _, post := range posts {
		if post.ID == "" {
			continue
		}

		// Fast path; the unique index makes the insert idempotent anyway.
		exists, err := s.store.MemoryExists(ctx, tenantID, post.ID)
		if err != nil {
			s.logger.Warn("Dedup check failed",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", post.ID),
				zap.Error(err))
		} else if exists {
			continue
		}

		record := memoryFromPost(tenantID, post)
		ok, err := s.store.InsertMemory(ctx, record)
		if err != nil {
			s.logger.Error("Failed to store memory record",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", post.ID),
				zap.Error(err))
			continue
		}
		if ok {
			inserted++
		}
	}

	if len(posts) > 0 {
		snapshot := s.rollup(tenantID, posts)
		if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.Warn("Failed to save snapshot", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}

	return inserted
}

func memoryFromPost(tenantID string, post models.SocialPost) *models.MemoryRecord {
	record := &models.MemoryRecord{
		TenantID:   tenantID,
		ExternalID: post.ID,
		Content:    post.Text,
		SourceType: "mention",
		Author:     post.Author,
		Likes:      post.Likes,
		Replies:    post.Replies,
		Reposts:    post.Reposts,
		Views:      post.Views,
	}
	if !post.PostedAt.IsZero() {
		ts := post.PostedAt
		record.PostedAt = &ts
	}
	if len(post.MediaURLs) > 0 {
		if data, err := json.Marshal(post.MediaURLs); err == nil {
			record.MediaURLs = string(data)
		}
	}
	return record
}

// rollup computes a lightweight metrics estimate from one fetched batch so
// downstream consumers have a fallback absent richer analytics.
func (s *SocialService) rollup(tenantID string, posts []models.SocialPost) *models.SocialSnapshot {
	totalViews := 0
	totalEngagement := 0
	maxViews := 0
	buckets := make(map[string]int)

	for _, post := range posts {
		engagement := post.Likes + post.Replies + post.Reposts
		totalEngagement += engagement
		totalViews += post.Views
		if post.Views > maxViews {
			maxViews = post.Views
		}
		day := post.PostedAt.Format("2006-01-02")
		buckets[day] += engagement
	}

	rate := 0.0
	if totalViews > 0 {
		rate = float64(totalEngagement) / float64(totalViews)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	history := make([]map[string]interface{}, 0, len(days))
	for _, day := range days {
		history = append(history, map[string]interface{}{
			"date":       day,
			"engagement": buckets[day],
		})
	}
	historyJSON, _ := json.Marshal(history)

	return &models.SocialSnapshot{
		TenantID:          tenantID,
		FollowerEstimate:  maxViews / 10,
		EngagementRate:    rate,
		WeeklyImpressions: totalViews,
		EngagementHistory: string(historyJSON),
		PostCount:         len(posts),
	}
}
