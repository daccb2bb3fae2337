package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gradescout/gradescout/internal/analytics"
	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/metrics"
	"github.com/gradescout/gradescout/internal/models"
)

// salesPayload carries up to three sub-collections for one card. Any
// of them may be missing or empty.
type salesPayload struct {
	Transactions []txRecord   `json:"transactions"`
	TCGPlayer    []tcgRecord  `json:"tcgplayer"`
	EbayAvg      []ebayRecord `json:"ebay_avg"`
}

type txRecord struct {
	SourceID    int64        `json:"id"`
	CardID      int          `json:"card_id"`
	DateSold    string       `json:"date_sold"`
	EbayHandle  string       `json:"ebay_handle"`
	EbayItemID  string       `json:"ebay_item_id"`
	Marketplace string       `json:"marketplace"`
	BidCount    int          `json:"num_bids"`
	Grade       models.Grade `json:"psa_grade"`
	SetID       int          `json:"set_id"`
	Price       float64      `json:"sold_price"`
	Title       string       `json:"title"`
}

type tcgRecord struct {
	SourceID     int64   `json:"id"`
	CardID       int     `json:"card_id"`
	CreatedAt    string  `json:"created_at"`
	DateSold     string  `json:"date_sold"`
	Interpolated bool    `json:"interpolated"`
	SetID        int     `json:"set_id"`
	Price        float64 `json:"sold_price"`
}

type ebayRecord struct {
	CardID   int          `json:"card_id"`
	DateSold string       `json:"date_sold"`
	Grade    models.Grade `json:"psa_grade"`
	Price    float64      `json:"sold_price"`
	Volume   int          `json:"volume"`
}

// IngestSales appends the new rows from a sales payload. All three
// sub-collections are append-only and deduplicated on their natural
// keys, so replaying a payload inserts nothing. The card identity is
// taken from the first transaction, falling back to the first
// TCGPlayer sale. Returns the number of rows actually inserted.
func (i *Ingestor) IngestSales(env *cache.Envelope) (int, error) {
	if !env.HasData() {
		log.Printf("ingest: sales payload has no data, nothing to do")
		return 0, nil
	}

	var payload salesPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode sales payload: %w", err)
	}

	var cardID int
	switch {
	case len(payload.Transactions) > 0:
		cardID = payload.Transactions[0].CardID
	case len(payload.TCGPlayer) > 0:
		cardID = payload.TCGPlayer[0].CardID
	}
	if cardID == 0 {
		log.Printf("ingest: sales payload has no card identity, nothing to do")
		return 0, nil
	}

	var txRows []models.Transaction
	for _, t := range payload.Transactions {
		txRows = append(txRows, models.Transaction{
			SourceID:    t.SourceID,
			CardID:      t.CardID,
			DateSold:    parseSaleDate(t.DateSold, "sales"),
			EbayHandle:  t.EbayHandle,
			EbayItemID:  t.EbayItemID,
			Marketplace: t.Marketplace,
			BidCount:    t.BidCount,
			Grade:       t.Grade,
			SetID:       t.SetID,
			Price:       t.Price,
			Title:       t.Title,
		})
	}

	var tcgRows []models.TCGPlayerSale
	for _, t := range payload.TCGPlayer {
		tcgRows = append(tcgRows, models.TCGPlayerSale{
			SourceID:     t.SourceID,
			CardID:       t.CardID,
			CreatedAt:    parseSaleDate(t.CreatedAt, "sales"),
			DateSold:     parseSaleDate(t.DateSold, "sales"),
			Interpolated: t.Interpolated,
			SetID:        t.SetID,
			Price:        t.Price,
		})
	}

	var ebayRows []models.EbayAverage
	for _, e := range payload.EbayAvg {
		ebayRows = append(ebayRows, models.EbayAverage{
			CardID:   e.CardID,
			DateSold: parseSaleDate(e.DateSold, "sales"),
			Grade:    e.Grade,
			Price:    e.Price,
			Volume:   e.Volume,
		})
	}

	stamp := parseStamp(env.UpdatedDate)
	if stamp == nil {
		now := time.Now()
		stamp = &now
	}

	var inserted int64
	err := i.db.Transaction(func(tx *gorm.DB) error {
		marker := models.CardSales{CardID: cardID, UpdatedAt: stamp}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "card_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&marker).Error; err != nil {
			return fmt.Errorf("failed to upsert sales marker for card %d: %w", cardID, err)
		}

		if len(txRows) > 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&txRows)
			if res.Error != nil {
				return fmt.Errorf("failed to insert transactions for card %d: %w", cardID, res.Error)
			}
			metrics.RowsUpsertedTotal.WithLabelValues("transactions").Add(float64(res.RowsAffected))
			inserted += res.RowsAffected
		}
		if len(tcgRows) > 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tcgRows)
			if res.Error != nil {
				return fmt.Errorf("failed to insert tcgplayer sales for card %d: %w", cardID, res.Error)
			}
			metrics.RowsUpsertedTotal.WithLabelValues("tcgplayer_sales").Add(float64(res.RowsAffected))
			inserted += res.RowsAffected
		}
		if len(ebayRows) > 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ebayRows)
			if res.Error != nil {
				return fmt.Errorf("failed to insert ebay averages for card %d: %w", cardID, res.Error)
			}
			metrics.RowsUpsertedTotal.WithLabelValues("ebay_averages").Add(float64(res.RowsAffected))
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := analytics.RecalcSalesVolume(i.db, cardID); err != nil {
		log.Printf("ingest: sales volume recalc for card %d failed: %v", cardID, err)
	}

	return int(inserted), nil
}
