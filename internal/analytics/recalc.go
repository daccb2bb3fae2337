// Package analytics derives per-card metrics from ingested facts:
// gem rate from population counts, grading financials from prices and
// gem rate, and sales volume from transaction history. Each
// recalculation is a whole-card recompute, so it is idempotent and
// safe to re-run after any ingest.
package analytics

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gradescout/gradescout/internal/metrics"
	"github.com/gradescout/gradescout/internal/models"
)

// salesWindow is the trailing window, ending at the card's most recent
// sale, over which volumes are counted. The window anchors on the
// card's own last sale rather than the wall clock so a card whose data
// was refreshed long ago still reports the volume around its latest
// known activity.
const salesWindow = 30 * 24 * time.Hour

// RecalcAnalytics recomputes a card's gem rate from its population
// rows. A card with no population rows is a silent no-op.
func RecalcAnalytics(db *gorm.DB, cardID int) error {
	var row struct {
		Psa10Pop int
		OtherPop int
		RowCount int
	}
	err := db.Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN grade = ? THEN population_count ELSE 0 END), 0) AS psa10_pop,
			COALESCE(SUM(CASE WHEN grade <> ? THEN population_count ELSE 0 END), 0) AS other_pop,
			COUNT(*) AS row_count
		FROM psa_population
		WHERE card_id = ?`,
		float64(models.GradeGem), float64(models.GradeGem), cardID,
	).Scan(&row).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate population for card %d: %w", cardID, err)
	}

	if row.RowCount == 0 {
		metrics.RecalculationsTotal.WithLabelValues("card_analytics", "noop").Inc()
		return nil
	}

	rec := models.CardAnalytics{
		CardID:          cardID,
		Psa10Population: row.Psa10Pop,
		OtherPopulation: row.OtherPop,
		GemRate:         GemRate(row.Psa10Pop, row.OtherPop),
		RecomputedAt:    time.Now(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"psa10_population", "other_population", "gem_rate", "recomputed_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert analytics for card %d: %w", cardID, err)
	}

	metrics.RecalculationsTotal.WithLabelValues("card_analytics", "written").Inc()
	return nil
}

// RecalcFinancials recomputes a card's grading financials. It needs a
// raw price, a PSA 10 price, and a gem rate; if any is missing the
// call is a silent no-op so callers can fire it optimistically after
// every ingest.
func RecalcFinancials(db *gorm.DB, cardID int, gradingCost float64) error {
	var row struct {
		RawPrice   *float64
		Psa10Price *float64
		GemRate    *float64
	}
	err := db.Raw(`
		SELECT
			(SELECT average_price FROM card_stats WHERE card_id = @id AND grade = @raw) AS raw_price,
			(SELECT average_price FROM card_stats WHERE card_id = @id AND grade = @gem) AS psa10_price,
			(SELECT gem_rate FROM card_analytics WHERE card_id = @id) AS gem_rate`,
		map[string]any{
			"id":  cardID,
			"raw": float64(models.GradeRaw),
			"gem": float64(models.GradeGem),
		},
	).Scan(&row).Error
	if err != nil {
		return fmt.Errorf("failed to load financial inputs for card %d: %w", cardID, err)
	}

	if row.RawPrice == nil || row.Psa10Price == nil || row.GemRate == nil {
		metrics.RecalculationsTotal.WithLabelValues("grading_financials", "noop").Inc()
		return nil
	}

	fin := ComputeFinancials(*row.RawPrice, *row.Psa10Price, *row.GemRate, gradingCost)
	rec := models.GradingFinancials{
		CardID:          cardID,
		ExpectedValue:   fin.ExpectedValue,
		TotalCost:       fin.TotalCost,
		NetGain:         fin.NetGain,
		LucrativeFactor: fin.LucrativeFactor,
		RecomputedAt:    time.Now(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expected_value", "total_cost", "net_gain", "lucrative_factor", "recomputed_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert financials for card %d: %w", cardID, err)
	}

	metrics.RecalculationsTotal.WithLabelValues("grading_financials", "written").Inc()
	return nil
}

// RecalcSalesVolume recounts a card's sales within the trailing window
// ending at its most recent dated sale. A card with no dated
// transactions is a silent no-op.
func RecalcSalesVolume(db *gorm.DB, cardID int) error {
	var txns []models.Transaction
	err := db.Select("grade", "date_sold").
		Where("card_id = ? AND date_sold IS NOT NULL", cardID).
		Find(&txns).Error
	if err != nil {
		return fmt.Errorf("failed to load transactions for card %d: %w", cardID, err)
	}

	if len(txns) == 0 {
		metrics.RecalculationsTotal.WithLabelValues("sales_volume", "noop").Inc()
		return nil
	}

	var last time.Time
	for _, t := range txns {
		if t.DateSold.After(last) {
			last = *t.DateSold
		}
	}

	// Day granularity, inclusive on both ends.
	end := truncateDay(last)
	start := end.Add(-salesWindow)

	var psa10, other int
	for _, t := range txns {
		day := truncateDay(*t.DateSold)
		if day.Before(start) || day.After(end) {
			continue
		}
		switch {
		case t.Grade.IsGem():
			psa10++
		case t.Grade >= models.GradeRaw && t.Grade < models.GradeGem:
			other++
		}
	}

	rec := models.SalesVolume{
		CardID:       cardID,
		Psa10Volume:  psa10,
		OtherVolume:  other,
		LastSaleDate: &last,
		RecomputedAt: time.Now(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"psa10_volume", "other_volume", "last_sale_date", "recomputed_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sales volume for card %d: %w", cardID, err)
	}

	metrics.RecalculationsTotal.WithLabelValues("sales_volume", "written").Inc()
	return nil
}

// RecalcAllDerived recomputes every derived table for every known
// card. Per-card failures are logged and skipped so one bad card
// cannot stall the sweep.
func RecalcAllDerived(db *gorm.DB, gradingCost float64) (int, error) {
	var cardIDs []int
	if err := db.Model(&models.Card{}).Order("id").Pluck("id", &cardIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to list cards: %w", err)
	}

	for _, id := range cardIDs {
		if err := RecalcAnalytics(db, id); err != nil {
			log.Printf("analytics: card %d analytics recalc failed: %v", id, err)
		}
		if err := RecalcFinancials(db, id, gradingCost); err != nil {
			log.Printf("analytics: card %d financials recalc failed: %v", id, err)
		}
		if err := RecalcSalesVolume(db, id); err != nil {
			log.Printf("analytics: card %d sales volume recalc failed: %v", id, err)
		}
	}
	return len(cardIDs), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
