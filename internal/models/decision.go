package models

import (
	"time"
)

// Action kinds the brain may propose. ERROR and NO_ACTION are sentinel
// results that callers filter out before persisting.
const (
	ActionReply     = "REPLY"
	ActionTrendJack = "TREND_JACK"
	ActionCampaign  = "CAMPAIGN"
	ActionGapFill   = "GAP_FILL"
	ActionCommunity = "COMMUNITY"
	ActionError     = "ERROR"
	ActionNoAction  = "NO_ACTION"
)

// Decision review states. Status only changes through the external review
// surface; this subsystem always writes pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var knownActions = map[string]bool{
	ActionReply:     true,
	ActionTrendJack: true,
	ActionCampaign:  true,
	ActionGapFill:   true,
	ActionCommunity: true,
}

// KnownAction reports whether kind is a persistable marketing action.
func KnownAction(kind string) bool {
	return knownActions[kind]
}

// AgentDecision is one candidate marketing action awaiting human review.
type AgentDecision struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID  string    `gorm:"size:64;not null;index" json:"tenant_id"`
	Action    string    `gorm:"size:32;not null" json:"action"`
	TargetID  string    `gorm:"size:128" json:"target_id"`
	Reason    string    `gorm:"type:text" json:"reason"`
	Draft     string    `gorm:"type:text" json:"draft"`
	Status    string    `gorm:"size:20;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// DecisionBackup is the nightly snapshot blob, one overwritten row.
type DecisionBackup struct {
	Key       string    `gorm:"primaryKey;size:32" json:"key"`
	Data      []byte    `json:"data"`
	Count     int       `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BriefingReport is the daily per-tenant intelligence brief, overwritten.
type BriefingReport struct {
	TenantID    string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	Content     string    `gorm:"type:text" json:"content"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
}
