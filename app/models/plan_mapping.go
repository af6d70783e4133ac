package models

import "time"

// PlanMapping maps provider price IDs to internal subscription tiers. The
// webhook ingestor consults this table before falling back to price-id
// heuristics.
type PlanMapping struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Provider  string    `gorm:"type:varchar(20);not null;index:ux_plan_mappings_provider_price,unique,priority:1" json:"provider"`
	PriceID   string    `gorm:"type:varchar(191);not null;index:ux_plan_mappings_provider_price,unique,priority:2" json:"price_id"`
	Tier      string    `gorm:"type:varchar(32);not null;default:'monthly'" json:"tier"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
