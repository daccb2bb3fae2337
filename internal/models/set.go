package models

import (
	"time"
)

// Set is one released card set. UpdatedAt is the freshness stamp of
// the last card-price ingestion for the set; it stays NULL until a
// set-price payload has been ingested and is deliberately not touched
// by set-details ingestion, which has independent provenance.
type Set struct {
	ID        int        `json:"set_id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"index"`
	Code      string     `json:"code"`
	UpdatedAt *time.Time `json:"updated_date" gorm:"autoUpdateTime:false"`
}

// SetDetails carries the independently sourced metadata for a set.
type SetDetails struct {
	SetID       int        `json:"set_id" gorm:"primaryKey"`
	Language    string     `json:"language"`
	ReleaseDate *time.Time `json:"release_date"`
	UpdatedAt   *time.Time `json:"updated_date" gorm:"autoUpdateTime:false"`
}

func (SetDetails) TableName() string { return "set_details" }
