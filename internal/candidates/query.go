// Package candidates discovers, filters and caches grading-value
// candidates: cards whose PSA 10 price clears the raw price by enough
// to make grading worth considering.
package candidates

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/models"
)

// Params are the price thresholds for candidate discovery.
type Params struct {
	// PriceDelta is the margin the PSA 10 price must clear the raw
	// price by.
	PriceDelta float64
	// Psa10Min is the minimum PSA 10 price.
	Psa10Min float64
	// MinNetGain is the minimum stored net gain.
	MinNetGain float64
}

// candidateRow is the flat join row behind an assembled candidate.
type candidateRow struct {
	CardID          int
	SetID           int
	Name            string
	Number          string
	ImageURL        string
	Language        string
	ReleaseDate     time.Time
	Secret          bool
	Hot             bool
	Live            bool
	StatsURL        string
	SetName         string
	SetCode         string
	Psa10Population int
	OtherPopulation int
	GemRate         float64
	ExpectedValue   float64
	TotalCost       float64
	NetGain         float64
	LucrativeFactor float64
	Psa10Volume     *int
	OtherVolume     *int
	LastSaleDate    *time.Time
}

const recentRawSalesLimit = 10

// FindProfitable assembles the full candidate list in three batched
// steps so the row count never drives the query count: price-criteria
// grouping over card_stats, one join fetching everything per card, and
// two batch fetches for the stat and recent-raw-sale collections.
func FindProfitable(db *gorm.DB, p Params) ([]models.Candidate, error) {
	gradeParams := map[string]any{
		"raw":   float64(models.GradeRaw),
		"gem":   float64(models.GradeGem),
		"delta": p.PriceDelta,
		"min":   p.Psa10Min,
	}

	// Step 1: cards priced at both ends of the grade spectrum whose
	// spread clears the thresholds.
	var ids []int
	err := db.Raw(`
		SELECT card_id FROM card_stats
		WHERE grade IN (@raw, @gem)
		GROUP BY card_id
		HAVING COUNT(DISTINCT grade) = 2
		   AND MAX(CASE WHEN grade = @gem THEN average_price END) >
		       MAX(CASE WHEN grade = @raw THEN average_price END) + @delta
		   AND MAX(CASE WHEN grade = @gem THEN average_price END) > @min`,
		gradeParams,
	).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate ids: %w", err)
	}
	if len(ids) == 0 {
		return []models.Candidate{}, nil
	}

	// Step 2: the main join. Analytics and financials are required,
	// sales volume is optional.
	var rows []candidateRow
	err = db.Raw(`
		SELECT
			c.id AS card_id, c.set_id, c.name, c.number, c.image_url, c.language,
			c.release_date, c.secret, c.hot, c.live, c.stats_url,
			s.name AS set_name, s.code AS set_code,
			ca.psa10_population, ca.other_population, ca.gem_rate,
			gf.expected_value, gf.total_cost, gf.net_gain, gf.lucrative_factor,
			sv.psa10_volume, sv.other_volume, sv.last_sale_date
		FROM cards c
		JOIN sets s ON c.set_id = s.id
		JOIN card_analytics ca ON c.id = ca.card_id
		JOIN grading_financials gf ON c.id = gf.card_id
		LEFT JOIN sales_volume sv ON c.id = sv.card_id
		WHERE c.id IN ? AND gf.net_gain >= ?
		ORDER BY c.id`,
		ids, p.MinNetGain,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate rows: %w", err)
	}
	if len(rows) == 0 {
		return []models.Candidate{}, nil
	}

	finalIDs := make([]int, 0, len(rows))
	for _, r := range rows {
		finalIDs = append(finalIDs, r.CardID)
	}

	// Step 3: batch fetch the per-grade stats for every surviving card.
	var stats []models.CardStat
	if err := db.Where("card_id IN ?", finalIDs).Order("card_id, grade").Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidate stats: %w", err)
	}
	statsByCard := make(map[int][]models.CardStat, len(finalIDs))
	for _, s := range stats {
		statsByCard[s.CardID] = append(statsByCard[s.CardID], s)
	}

	// Batch fetch the most recent ungraded sales per card.
	var sales []models.Transaction
	err = db.Raw(`
		WITH ranked AS (
			SELECT id, source_id, card_id, date_sold, ebay_handle, ebay_item_id,
			       marketplace, bid_count, grade, set_id, price, title,
			       ROW_NUMBER() OVER (PARTITION BY card_id ORDER BY date(date_sold) DESC) AS rn
			FROM transactions
			WHERE card_id IN ? AND grade = ?
		)
		SELECT id, source_id, card_id, date_sold, ebay_handle, ebay_item_id,
		       marketplace, bid_count, grade, set_id, price, title
		FROM ranked
		WHERE rn <= ?
		ORDER BY card_id, rn`,
		finalIDs, float64(models.GradeRaw), recentRawSalesLimit,
	).Scan(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate sales: %w", err)
	}
	salesByCard := make(map[int][]models.CandidateSale, len(finalIDs))
	for _, t := range sales {
		salesByCard[t.CardID] = append(salesByCard[t.CardID], models.CandidateSale{
			SourceID:    t.SourceID,
			CardID:      t.CardID,
			DateSold:    formatSaleDate(t.DateSold),
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

	out := make([]models.Candidate, 0, len(rows))
	for _, r := range rows {
		cardStats := statsByCard[r.CardID]

		var rawPrice, psa10Price float64
		for _, s := range cardStats {
			switch {
			case s.Grade.IsRaw():
				rawPrice = s.AveragePrice
			case s.Grade.IsGem():
				psa10Price = s.AveragePrice
			}
		}

		release := r.ReleaseDate.Format("2006-01-02")

		var lastSale string
		if r.LastSaleDate != nil {
			lastSale = r.LastSaleDate.Format(cache.TimeLayout)
		}

		out = append(out, models.Candidate{
			ID:          r.CardID,
			Name:        r.Name,
			RawPrice:    rawPrice,
			Psa10Price:  psa10Price,
			SetID:       r.SetID,
			SetName:     r.SetName,
			SetCode:     r.SetCode,
			StatsURL:    r.StatsURL,
			ReleaseDate: release,
			CardData: models.CandidateCardData{
				ID:          r.CardID,
				SetID:       r.SetID,
				SetName:     r.SetName,
				SetCode:     r.SetCode,
				Name:        r.Name,
				Number:      r.Number,
				ImageURL:    r.ImageURL,
				Language:    r.Language,
				ReleaseDate: release,
				Secret:      r.Secret,
				Hot:         r.Hot,
				Live:        r.Live,
				StatsURL:    r.StatsURL,
				Stats:       cardStats,
			},
			Psa10Population: r.Psa10Population,
			OtherPopulation: r.OtherPopulation,
			GemRate:         r.GemRate,
			ExpectedValue:   r.ExpectedValue,
			TotalCost:       r.TotalCost,
			NetGain:         r.NetGain,
			LucrativeFactor: r.LucrativeFactor,
			Psa10Volume:     intOrZero(r.Psa10Volume),
			OtherVolume:     intOrZero(r.OtherVolume),
			LastSaleDate:    lastSale,
			RecentRawSales:  salesByCard[r.CardID],
		})
	}
	return out, nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// formatSaleDate renders a sale timestamp back in the upstream
// RFC-1123-style shape.
func formatSaleDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
}
