package models

import (
	"time"
)

// Brand is one tenant managed by the agent. Rows are created by the
// onboarding surface; this subsystem only reads them.
type Brand struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName       string    `gorm:"size:255;not null" json:"display_name"`
	ExternalHandle    string    `gorm:"size:255;not null" json:"external_handle"`
	Topic             string    `gorm:"size:128" json:"topic"`
	Voice             string    `gorm:"type:text" json:"voice"`
	Knowledge         string    `gorm:"type:text" json:"knowledge"`
	AutomationEnabled bool      `gorm:"default:true" json:"automation_enabled"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AutomationSetting gates scheduled work per tenant. A missing row means
// enabled; the settings surface that mutates it is external.
type AutomationSetting struct {
	TenantID  string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
