package candidates

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gradescout/gradescout/internal/models"
)

// RefreshTarget is a candidate-priced card missing a derived table,
// due for a refresh attempt.
type RefreshTarget struct {
	CardID     int
	Name       string
	RawPrice   float64
	Psa10Price float64
}

// targetQuery is the shared shape of the refresh-target queries: the
// price-criteria CTE joined against a missing derived table and its
// attempt ledger. The cooldown keeps cards whose upstream data is
// permanently absent from being re-fetched every cycle.
const targetQuery = `
	WITH priced AS (
		SELECT card_id,
		       MAX(CASE WHEN grade = @raw THEN average_price END) AS raw_price,
		       MAX(CASE WHEN grade = @gem THEN average_price END) AS psa10_price
		FROM card_stats
		WHERE grade IN (@raw, @gem)
		GROUP BY card_id
		HAVING COUNT(DISTINCT grade) = 2
		   AND MAX(CASE WHEN grade = @gem THEN average_price END) >
		       MAX(CASE WHEN grade = @raw THEN average_price END) + @delta
		   AND MAX(CASE WHEN grade = @gem THEN average_price END) > @min
	)
	SELECT c.id AS card_id, c.name, p.raw_price, p.psa10_price
	FROM cards c
	JOIN priced p ON c.id = p.card_id
	LEFT JOIN %s d ON c.id = d.card_id
	LEFT JOIN %s l ON c.id = l.card_id
	WHERE d.card_id IS NULL
	  AND (l.last_attempted_at IS NULL OR l.last_attempted_at <= @cutoff)
	ORDER BY c.id DESC`

func findTargets(db *gorm.DB, derivedTable, ledgerTable string, priceDelta, psa10Min float64, cooldown time.Duration) ([]RefreshTarget, error) {
	var targets []RefreshTarget
	err := db.Raw(fmt.Sprintf(targetQuery, derivedTable, ledgerTable),
		map[string]any{
			"raw":    float64(models.GradeRaw),
			"gem":    float64(models.GradeGem),
			"delta":  priceDelta,
			"min":    psa10Min,
			"cutoff": time.Now().Add(-cooldown),
		},
	).Scan(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select refresh targets from %s: %w", derivedTable, err)
	}
	return targets, nil
}

// WithoutAnalytics returns candidate-priced cards that have no
// analytics row and no refresh attempt within the cooldown.
func WithoutAnalytics(db *gorm.DB, priceDelta, psa10Min float64, cooldown time.Duration) ([]RefreshTarget, error) {
	return findTargets(db, models.CardAnalytics{}.TableName(), models.GemRateRefreshLog{}.TableName(), priceDelta, psa10Min, cooldown)
}

// WithoutSalesVolume returns candidate-priced cards that have no
// sales-volume row and no refresh attempt within the cooldown.
func WithoutSalesVolume(db *gorm.DB, priceDelta, psa10Min float64, cooldown time.Duration) ([]RefreshTarget, error) {
	return findTargets(db, models.SalesVolume{}.TableName(), models.SalesVolumeRefreshLog{}.TableName(), priceDelta, psa10Min, cooldown)
}
