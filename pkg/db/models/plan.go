package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is a priced subscription tier with included resource allowances.
// Overage beyond the included counts is priced per unit from the plan itself,
// never from addons.
type Plan struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	BasePrice   decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null" json:"base_price"`

	IncludedInboxes     int `gorm:"column:included_inboxes;not null;default:1" json:"included_inboxes"`
	IncludedAgents      int `gorm:"column:included_agents;not null;default:1" json:"included_agents"`
	IncludedAutomations int `gorm:"column:included_automations;not null;default:1" json:"included_automations"`

	InboxOveragePrice      decimal.Decimal `gorm:"column:inbox_overage_price;type:numeric(12,2);not null" json:"inbox_overage_price"`
	AgentOveragePrice      decimal.Decimal `gorm:"column:agent_overage_price;type:numeric(12,2);not null" json:"agent_overage_price"`
	AutomationOveragePrice decimal.Decimal `gorm:"column:automation_overage_price;type:numeric(12,2);not null" json:"automation_overage_price"`

	HasKanban          bool `gorm:"column:has_kanban;not null;default:false" json:"has_kanban"`
	HasOfficialChannel bool `gorm:"column:has_official_channel;not null;default:false" json:"has_official_channel"`
	HasHumanSupport    bool `gorm:"column:has_human_support;not null;default:false" json:"has_human_support"`

	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
