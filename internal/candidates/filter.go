package candidates

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/gradescout/gradescout/internal/models"
)

// FilterParams are the presentation-side thresholds applied on top of
// an assembled candidate list. Gem rate and net gain are inclusive
// minimums, total cost an inclusive maximum; lucrative factor and
// PSA 10 volume are strict minimums. The date window is exclusive at
// the start and inclusive at the end.
type FilterParams struct {
	MinGemRate         float64
	MinNetGain         float64
	MaxTotalCost       float64
	MinLucrativeFactor float64
	MinPsa10Volume     int
	StartDate          time.Time
	EndDate            *time.Time
	Search             string
}

// DefaultStartDate is the default release-date floor; candidates must
// be released strictly after it.
var DefaultStartDate = time.Date(2014, time.February, 1, 0, 0, 0, 0, time.UTC)

// DefaultFilterParams returns the thresholds used when a request
// leaves them unspecified.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		MinGemRate:         0.40,
		MinNetGain:         40,
		MaxTotalCost:       100,
		MinLucrativeFactor: 0.50,
		MinPsa10Volume:     10,
		StartDate:          DefaultStartDate,
	}
}

// Filter applies the thresholds, the date window and the free-text
// search to a candidate list. Results are grouped by release date
// (oldest first) with the most lucrative candidates first within each
// group, then flattened. Candidates with unparseable release dates are
// dropped. Always returns a non-nil slice.
func Filter(cards []models.Candidate, p FilterParams) []models.Candidate {
	sorted := make([]models.Candidate, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ReleaseDate != sorted[j].ReleaseDate {
			return sorted[i].ReleaseDate < sorted[j].ReleaseDate
		}
		return sorted[i].LucrativeFactor > sorted[j].LucrativeFactor
	})

	out := []models.Candidate{}
	for _, c := range sorted {
		release, err := time.Parse("2006-01-02", c.ReleaseDate)
		if err != nil {
			continue
		}
		if !release.After(p.StartDate) {
			continue
		}
		if p.EndDate != nil && release.After(*p.EndDate) {
			continue
		}
		if c.GemRate < p.MinGemRate ||
			c.NetGain < p.MinNetGain ||
			c.TotalCost > p.MaxTotalCost ||
			c.LucrativeFactor <= p.MinLucrativeFactor ||
			c.Psa10Volume <= p.MinPsa10Volume {
			continue
		}
		out = append(out, c)
	}

	if q := strings.ToLower(strings.TrimSpace(p.Search)); q != "" {
		matched := []models.Candidate{}
		for _, c := range out {
			if matchesSearch(c, q) {
				matched = append(matched, c)
			}
		}
		out = matched
	}

	return out
}

// matchesSearch reports whether a candidate matches a lowercased
// query: fuzzy match on the card name, substring match on the id,
// number, set name and recent sale titles.
func matchesSearch(c models.Candidate, q string) bool {
	if len(fuzzy.Find(q, []string{strings.ToLower(c.CardData.Name)})) > 0 {
		return true
	}
	if strings.Contains(strconv.Itoa(c.CardData.ID), q) {
		return true
	}
	if strings.Contains(strings.ToLower(c.CardData.Number), q) {
		return true
	}
	if strings.Contains(strings.ToLower(c.CardData.SetName), q) {
		return true
	}
	for _, sale := range c.RecentRawSales {
		if strings.Contains(strings.ToLower(sale.Title), q) {
			return true
		}
	}
	return false
}
