package models

import "time"

// RateLimit is a fixed-window request counter keyed by (user, endpoint).
// Created on the first request of a window, incremented until the window
// expires, then reset in place.
type RateLimit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:ux_rate_limits_user_endpoint,unique,priority:1" json:"user_id"`
	Endpoint    string    `gorm:"type:varchar(100);not null;index:ux_rate_limits_user_endpoint,unique,priority:2" json:"endpoint"`
	WindowStart time.Time `gorm:"type:timestamp;not null" json:"window_start"`
	LastRequest time.Time `gorm:"type:timestamp;not null" json:"last_request"`
	Count       int       `gorm:"not null;default:0" json:"count"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
