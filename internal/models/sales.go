package models

import (
	"time"
)

// CardSales marks that a sales payload has been ingested for a card
// and when. It exists so staleness checks don't have to scan the
// transaction tables.
type CardSales struct {
	CardID    int        `json:"card_id" gorm:"primaryKey"`
	UpdatedAt *time.Time `json:"updated_date" gorm:"autoUpdateTime:false"`
}

func (CardSales) TableName() string { return "card_sales" }

// Transaction is one marketplace sale. Append-only: rows are unique
// per upstream SourceID and re-ingestion is a no-op for seen ids.
type Transaction struct {
	ID          uint       `json:"-" gorm:"primaryKey"`
	SourceID    int64      `json:"id" gorm:"uniqueIndex"`
	CardID      int        `json:"card_id" gorm:"index"`
	DateSold    *time.Time `json:"date_sold"`
	EbayHandle  string     `json:"ebay_handle"`
	EbayItemID  string     `json:"ebay_item_id" gorm:"uniqueIndex"`
	Marketplace string     `json:"marketplace"`
	BidCount    int        `json:"num_bids"`
	Grade       Grade      `json:"psa_grade"`
	SetID       int        `json:"set_id"`
	Price       float64    `json:"sold_price"`
	Title       string     `json:"title"`
}

// TCGPlayerSale is one TCGPlayer price point from the sales payload,
// deduplicated by upstream id.
type TCGPlayerSale struct {
	ID           uint       `json:"-" gorm:"primaryKey"`
	SourceID     int64      `json:"id" gorm:"uniqueIndex"`
	CardID       int        `json:"card_id" gorm:"index"`
	CreatedAt    *time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	DateSold     *time.Time `json:"date_sold"`
	Interpolated bool       `json:"interpolated"`
	SetID        int        `json:"set_id"`
	Price        float64    `json:"sold_price"`
}

func (TCGPlayerSale) TableName() string { return "tcgplayer_sales" }

// EbayAverage is one aggregated eBay price point. The payload carries
// no natural id, so (card_id, date_sold, grade) is the dedup key.
type EbayAverage struct {
	ID       uint       `json:"-" gorm:"primaryKey"`
	CardID   int        `json:"card_id" gorm:"uniqueIndex:idx_ebay_avg_key"`
	DateSold *time.Time `json:"date_sold" gorm:"uniqueIndex:idx_ebay_avg_key"`
	Grade    Grade      `json:"psa_grade" gorm:"uniqueIndex:idx_ebay_avg_key"`
	Price    float64    `json:"sold_price"`
	Volume   int        `json:"volume"`
}

func (EbayAverage) TableName() string { return "ebay_averages" }

// SalesVolume is derived from transactions: counts within the 30-day
// window ending at the card's own most recent sale date (not "now" --
// two cards read on the same day can have differently dated windows).
type SalesVolume struct {
	CardID       int        `json:"card_id" gorm:"primaryKey"`
	Psa10Volume  int        `json:"psa10_volume"`
	OtherVolume  int        `json:"non_psa10_volume"`
	LastSaleDate *time.Time `json:"last_sales_date"`
	RecomputedAt time.Time  `json:"last_calculated"`
}

func (SalesVolume) TableName() string { return "sales_volume" }
