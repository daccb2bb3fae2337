package models

import (
	"time"
)

// PsaPopulation is the graded population count for one card at one
// grade, unpivoted from the upstream wide grade->count map. Unique per
// (card_id, grade); re-ingestion overwrites.
type PsaPopulation struct {
	ID              uint       `json:"-" gorm:"primaryKey"`
	CardID          int        `json:"card_id" gorm:"uniqueIndex:idx_pop_card_grade"`
	Grade           Grade      `json:"grade" gorm:"uniqueIndex:idx_pop_card_grade"`
	PopulationCount int        `json:"population_count"`
	UpdatedAt       *time.Time `json:"updated_date" gorm:"autoUpdateTime:false"`
}

func (PsaPopulation) TableName() string { return "psa_population" }

// CardAnalytics is derived from PsaPopulation and recomputed whenever
// population rows for the card change. GemRate is always in [0,1] and
// defined as 0 when the total population is 0.
type CardAnalytics struct {
	CardID          int       `json:"card_id" gorm:"primaryKey"`
	Psa10Population int       `json:"psa_10_pop"`
	OtherPopulation int       `json:"non_psa_10_pop"`
	GemRate         float64   `json:"gem_rate"`
	RecomputedAt    time.Time `json:"last_calculated"`
}

func (CardAnalytics) TableName() string { return "card_analytics" }

// GradingFinancials is derived from the raw price, PSA 10 price and
// gem rate. A row exists only for cards where all three inputs exist.
type GradingFinancials struct {
	CardID          int       `json:"card_id" gorm:"primaryKey"`
	ExpectedValue   float64   `json:"expected_value"`
	TotalCost       float64   `json:"total_cost"`
	NetGain         float64   `json:"net_gain"`
	LucrativeFactor float64   `json:"lucrative_factor"`
	RecomputedAt    time.Time `json:"last_calculated"`
}

func (GradingFinancials) TableName() string { return "grading_financials" }
