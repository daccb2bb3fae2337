package ingest

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm/clause"

	"github.com/gradescout/gradescout/internal/analytics"
	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/metrics"
	"github.com/gradescout/gradescout/internal/models"
)

// LooksSubstantive reports whether a population payload carries enough
// grade keys to be worth ingesting. Upstream sometimes answers with a
// near-empty map for cards it has no population for; those still count
// as a refresh attempt but should not overwrite stored rows.
func LooksSubstantive(env *cache.Envelope) bool {
	if !env.HasData() {
		return false
	}
	var wide map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &wide); err != nil {
		return false
	}
	grades := 0
	for key := range wide {
		if _, err := models.ParseGrade(key); err == nil {
			grades++
		}
	}
	return grades >= 2
}

// IngestPopulation unpivots the wide grade->count map for one card
// into per-grade rows. Keys that don't parse as grades and values that
// aren't whole numbers are skipped with a warning. Returns the number
// of rows upserted.
func (i *Ingestor) IngestPopulation(cardID int, env *cache.Envelope) (int, error) {
	if !env.HasData() {
		log.Printf("ingest: population payload for card %d has no data, nothing to do", cardID)
		return 0, nil
	}

	var wide map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &wide); err != nil {
		return 0, fmt.Errorf("failed to decode population payload for card %d: %w", cardID, err)
	}

	stamp := parseStamp(env.UpdatedDate)

	var rows []models.PsaPopulation
	for key, raw := range wide {
		if key == "updated_date" {
			continue
		}
		grade, err := models.ParseGrade(key)
		if err != nil {
			log.Printf("ingest: skipping population key %q for card %d: not a grade", key, cardID)
			metrics.MalformedRecordsTotal.WithLabelValues("population").Inc()
			continue
		}
		var count int
		if err := json.Unmarshal(raw, &count); err != nil {
			log.Printf("ingest: skipping population count %s for card %d grade %s: %v", raw, cardID, grade, err)
			metrics.MalformedRecordsTotal.WithLabelValues("population").Inc()
			continue
		}
		rows = append(rows, models.PsaPopulation{
			CardID:          cardID,
			Grade:           grade,
			PopulationCount: count,
			UpdatedAt:       stamp,
		})
	}
	if len(rows) == 0 {
		log.Printf("ingest: no usable population rows for card %d", cardID)
		return 0, nil
	}

	err := i.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}, {Name: "grade"}},
		DoUpdates: clause.AssignmentColumns([]string{"population_count", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert population for card %d: %w", cardID, err)
	}

	metrics.RowsUpsertedTotal.WithLabelValues("psa_population").Add(float64(len(rows)))

	if err := analytics.RecalcAnalytics(i.db, cardID); err != nil {
		log.Printf("ingest: analytics recalc for card %d failed: %v", cardID, err)
	}
	if err := analytics.RecalcFinancials(i.db, cardID, i.gradingCost); err != nil {
		log.Printf("ingest: financials recalc for card %d failed: %v", cardID, err)
	}

	return len(rows), nil
}

// ReadPopulationWide reassembles the stored per-grade rows for a card
// back into the wide map shape, with the newest row's stamp. The bool
// reports whether any rows exist.
func (i *Ingestor) ReadPopulationWide(cardID int) (map[string]int, string, error) {
	var rows []models.PsaPopulation
	if err := i.db.Where("card_id = ?", cardID).Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("failed to load population for card %d: %w", cardID, err)
	}
	if len(rows) == 0 {
		return nil, "", nil
	}

	wide := make(map[string]int, len(rows))
	var stamp string
	for _, r := range rows {
		wide[r.Grade.String()] = r.PopulationCount
		if r.UpdatedAt != nil {
			s := r.UpdatedAt.Format(cache.TimeLayout)
			if s > stamp {
				stamp = s
			}
		}
	}
	return wide, stamp, nil
}
