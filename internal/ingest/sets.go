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

// setCard is one card record from a set-prices payload. Every card in
// the payload belongs to the same set, whose identity is read from the
// first record.
type setCard struct {
	ID          int               `json:"id"`
	SetID       int               `json:"set_id"`
	SetName     string            `json:"set_name"`
	SetCode     string            `json:"set_code"`
	Name        string            `json:"name"`
	Number      string            `json:"num"`
	ImageURL    string            `json:"img_url"`
	Language    string            `json:"language"`
	ReleaseDate string            `json:"release_date"`
	Secret      bool              `json:"secret"`
	Hot         bool              `json:"hot"`
	Live        bool              `json:"live"`
	StatsURL    string            `json:"stat_url"`
	Stats       []models.CardStat `json:"stats"`
}

// IngestSetPrices writes the set row, every card row, and every
// per-grade price stat from one set-prices payload, then recomputes
// financials for the affected cards. Returns the number of card rows
// written.
func (i *Ingestor) IngestSetPrices(env *cache.Envelope) (int, error) {
	if !env.HasData() {
		log.Printf("ingest: set-prices payload has no data, nothing to do")
		return 0, nil
	}

	var payload []setCard
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode set-prices payload: %w", err)
	}
	if len(payload) == 0 {
		log.Printf("ingest: set-prices payload is empty, nothing to do")
		return 0, nil
	}

	stamp := parseStamp(env.UpdatedDate)
	first := payload[0]

	var cardRows []models.Card
	var statRows []models.CardStat
	for _, c := range payload {
		if c.ID == 0 {
			log.Printf("ingest: skipping set-prices record without a card id (set %d)", first.SetID)
			metrics.MalformedRecordsTotal.WithLabelValues("set_prices").Inc()
			continue
		}
		release, err := time.Parse(releaseDateLayout, c.ReleaseDate)
		if err != nil {
			log.Printf("ingest: skipping card %d with unparseable release date %q: %v", c.ID, c.ReleaseDate, err)
			metrics.MalformedRecordsTotal.WithLabelValues("set_prices").Inc()
			continue
		}

		cardRows = append(cardRows, models.Card{
			ID:          c.ID,
			SetID:       c.SetID,
			Name:        c.Name,
			Number:      c.Number,
			ImageURL:    c.ImageURL,
			Language:    c.Language,
			ReleaseDate: release,
			Secret:      c.Secret,
			Hot:         c.Hot,
			Live:        c.Live,
			StatsURL:    c.StatsURL,
		})
		for _, s := range c.Stats {
			s.CardID = c.ID
			statRows = append(statRows, s)
		}
	}
	if len(cardRows) == 0 {
		log.Printf("ingest: no usable card records in set-prices payload for set %d", first.SetID)
		return 0, nil
	}

	err := i.db.Transaction(func(tx *gorm.DB) error {
		// The set row's updated_at tracks price-payload freshness and
		// is only advanced when the envelope carried a stamp.
		setUpdates := []string{"name", "code"}
		if stamp != nil {
			setUpdates = append(setUpdates, "updated_at")
		}
		set := models.Set{ID: first.SetID, Name: first.SetName, Code: first.SetCode, UpdatedAt: stamp}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(setUpdates),
		}).Create(&set).Error; err != nil {
			return fmt.Errorf("failed to upsert set %d: %w", first.SetID, err)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&cardRows).Error; err != nil {
			return fmt.Errorf("failed to upsert cards for set %d: %w", first.SetID, err)
		}

		if len(statRows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "card_id"}, {Name: "grade"}},
				DoUpdates: clause.AssignmentColumns([]string{"average_price"}),
			}).Create(&statRows).Error; err != nil {
				return fmt.Errorf("failed to upsert card stats for set %d: %w", first.SetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RowsUpsertedTotal.WithLabelValues("cards").Add(float64(len(cardRows)))
	metrics.RowsUpsertedTotal.WithLabelValues("card_stats").Add(float64(len(statRows)))

	// Prices may have moved, so refresh financials for every card in
	// the batch. Per-card failures don't fail the ingest.
	for _, c := range cardRows {
		if err := analytics.RecalcFinancials(i.db, c.ID, i.gradingCost); err != nil {
			log.Printf("ingest: financials recalc for card %d failed: %v", c.ID, err)
		}
	}

	return len(cardRows), nil
}

// allSetsRecord is one set from the all-sets payload.
type allSetsRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// IngestAllSets registers every known set. Existing rows are left
// alone: the freshness stamp belongs to price ingestion and identity
// fields are refreshed by it too.
func (i *Ingestor) IngestAllSets(env *cache.Envelope) (int, error) {
	if !env.HasData() {
		log.Printf("ingest: all-sets payload has no data, nothing to do")
		return 0, nil
	}

	var payload []allSetsRecord
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode all-sets payload: %w", err)
	}
	if len(payload) == 0 {
		log.Printf("ingest: all-sets payload is empty, nothing to do")
		return 0, nil
	}

	var rows []models.Set
	for _, s := range payload {
		if s.ID == 0 {
			log.Printf("ingest: skipping all-sets record without a set id")
			metrics.MalformedRecordsTotal.WithLabelValues("all_sets").Inc()
			continue
		}
		rows = append(rows, models.Set{ID: s.ID, Name: s.Name, Code: s.Code})
	}
	if len(rows) == 0 {
		log.Printf("ingest: no usable records in all-sets payload")
		return 0, nil
	}

	res := i.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert sets: %w", res.Error)
	}

	metrics.RowsUpsertedTotal.WithLabelValues("sets").Add(float64(res.RowsAffected))
	return int(res.RowsAffected), nil
}

// setDetailsRecord is one set from the set-details payload, whose
// release dates come in the RFC-1123-style sale-date format.
type setDetailsRecord struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	ReleaseDate string `json:"release_date"`
}

// IngestSetDetails writes set metadata rows. Sets unseen by any price
// ingestion are inserted with a NULL freshness stamp so the updater
// will pick them up as stale.
func (i *Ingestor) IngestSetDetails(env *cache.Envelope) (int, error) {
	if !env.HasData() {
		log.Printf("ingest: set-details payload has no data, nothing to do")
		return 0, nil
	}

	var payload []setDetailsRecord
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode set-details payload: %w", err)
	}
	if len(payload) == 0 {
		log.Printf("ingest: set-details payload is empty, nothing to do")
		return 0, nil
	}

	stamp := parseStamp(env.UpdatedDate)

	var setRows []models.Set
	var detailRows []models.SetDetails
	for _, s := range payload {
		if s.ID == 0 {
			log.Printf("ingest: skipping set-details record without a set id")
			metrics.MalformedRecordsTotal.WithLabelValues("set_details").Inc()
			continue
		}
		setRows = append(setRows, models.Set{ID: s.ID, Name: s.Name, Code: s.Code})
		detailRows = append(detailRows, models.SetDetails{
			SetID:       s.ID,
			Language:    s.Language,
			ReleaseDate: parseSaleDate(s.ReleaseDate, "set_details"),
			UpdatedAt:   stamp,
		})
	}
	if len(detailRows) == 0 {
		log.Printf("ingest: no usable records in set-details payload")
		return 0, nil
	}

	err := i.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&setRows).Error; err != nil {
			return fmt.Errorf("failed to insert sets: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "set_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"language", "release_date", "updated_at"}),
		}).Create(&detailRows).Error; err != nil {
			return fmt.Errorf("failed to upsert set details: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RowsUpsertedTotal.WithLabelValues("set_details").Add(float64(len(detailRows)))
	return len(detailRows), nil
}
