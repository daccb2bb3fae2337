// Package refreshlog records refresh attempts per card. Attempts are
// logged whether or not the fetch returned anything, which is what
// lets the updater's cooldowns work for cards whose upstream data is
// permanently missing.
package refreshlog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gradescout/gradescout/internal/models"
)

// LogGemRateAttempts stamps the population-refresh ledger for the
// given cards at the given time.
func LogGemRateAttempts(db *gorm.DB, cardIDs []int, at time.Time) error {
	if len(cardIDs) == 0 {
		return nil
	}
	rows := make([]models.GemRateRefreshLog, 0, len(cardIDs))
	for _, id := range cardIDs {
		rows = append(rows, models.GemRateRefreshLog{CardID: id, LastAttemptedAt: at})
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_attempted_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to log gem-rate refresh attempts: %w", err)
	}
	return nil
}

// LogSalesVolumeAttempts stamps the sales-refresh ledger for the given
// cards at the given time.
func LogSalesVolumeAttempts(db *gorm.DB, cardIDs []int, at time.Time) error {
	if len(cardIDs) == 0 {
		return nil
	}
	rows := make([]models.SalesVolumeRefreshLog, 0, len(cardIDs))
	for _, id := range cardIDs {
		rows = append(rows, models.SalesVolumeRefreshLog{CardID: id, LastAttemptedAt: at})
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_attempted_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to log sales refresh attempts: %w", err)
	}
	return nil
}
