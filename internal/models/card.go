package models

import (
	"time"
)

// Card is one card within a set. Every mutable field is overwritten on
// each set refresh; the row is never partially updated.
type Card struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	SetID       int       `json:"set_id" gorm:"index"`
	Name        string    `json:"name" gorm:"index"`
	Number      string    `json:"num"`
	ImageURL    string    `json:"img_url"`
	Language    string    `json:"language"`
	ReleaseDate time.Time `json:"release_date"`
	Secret      bool      `json:"secret"`
	Hot         bool      `json:"hot"`
	Live        bool      `json:"live"`
	StatsURL    string    `json:"stat_url"`
}

// CardStat is the average market price of a card at one grade tier.
// Unique per (card_id, grade); re-ingestion overwrites the price.
type CardStat struct {
	ID           uint    `json:"-" gorm:"primaryKey"`
	CardID       int     `json:"card_id" gorm:"uniqueIndex:idx_card_grade"`
	Grade        Grade   `json:"source" gorm:"uniqueIndex:idx_card_grade"`
	AveragePrice float64 `json:"avg"`
}
