package models

import (
	"time"
)

// GemRateRefreshLog records the last time a population refresh was
// attempted for a card, regardless of whether the fetch returned
// anything. The updater uses it to avoid hot-looping on cards whose
// upstream population data is persistently missing.
type GemRateRefreshLog struct {
	CardID          int       `json:"card_id" gorm:"primaryKey"`
	LastAttemptedAt time.Time `json:"last_attempted_date"`
}

func (GemRateRefreshLog) TableName() string { return "gem_rate_refresh_log" }

// SalesVolumeRefreshLog is the same ledger for sales refreshes.
type SalesVolumeRefreshLog struct {
	CardID          int       `json:"card_id" gorm:"primaryKey"`
	LastAttemptedAt time.Time `json:"last_attempted_date"`
}

func (SalesVolumeRefreshLog) TableName() string { return "sales_volume_refresh_log" }
