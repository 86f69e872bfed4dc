package models

import (
	"time"
)

// SocialPost is one post as returned by the scraping provider.
type SocialPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	PostedAt  time.Time `json:"posted_at"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	Reposts   int       `json:"reposts"`
	Views     int       `json:"views"`
	MediaURLs []string  `json:"media_urls,omitempty"`
}

// CachedBatch is the latest fetched batch for one tenant, overwritten on
// every fetch and considered stale past the configured TTL.
type CachedBatch struct {
	TenantID  string       `json:"tenant_id"`
	FetchedAt time.Time    `json:"fetched_at"`
	Posts     []SocialPost `json:"posts"`
}

// MemoryRecord is the durable, append-only copy of an observed post. The
// composite unique index makes inserts idempotent per (tenant, external id).
type MemoryRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TenantID   string     `gorm:"size:64;not null;uniqueIndex:idx_memory_tenant_external" json:"tenant_id"`
	ExternalID string     `gorm:"size:128;not null;uniqueIndex:idx_memory_tenant_external" json:"external_id"`
	Content    string     `gorm:"type:text" json:"content"`
	SourceType string     `gorm:"size:50;default:'mention'" json:"source_type"`
	Author     string     `gorm:"size:255" json:"author"`
	PostedAt   *time.Time `json:"posted_at"`
	Likes      int        `gorm:"default:0" json:"likes"`
	Replies    int        `gorm:"default:0" json:"replies"`
	Reposts    int        `gorm:"default:0" json:"reposts"`
	Views      int        `gorm:"default:0" json:"views"`
	MediaURLs  string     `gorm:"type:text" json:"media_urls"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// SocialSnapshot holds derived metrics computed during a sync, one row per
// tenant, overwritten. It is a fallback for consumers that have no richer
// analytics source.
type SocialSnapshot struct {
	TenantID          string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	FollowerEstimate  int       `gorm:"default:0" json:"follower_estimate"`
	EngagementRate    float64   `gorm:"default:0" json:"engagement_rate"`
	WeeklyImpressions int       `gorm:"default:0" json:"weekly_impressions"`
	EngagementHistory string    `gorm:"type:text" json:"engagement_history"`
	PostCount         int       `gorm:"default:0" json:"post_count"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CacheEntry is the durable backing row for the injected batch cache.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	FetchedAt time.Time `gorm:"not null" json:"fetched_at"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
