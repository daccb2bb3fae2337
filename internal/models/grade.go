package models

import "strconv"

// Grade is a PSA grade tier. Tiers are numeric: 0 is an ungraded (raw)
// card, 10 is a gem-mint PSA 10, and half grades (8.5, 9.5) sit in
// between. Prices and populations are keyed by grade.
type Grade float64

const (
	// GradeRaw is the tier used for ungraded market prices.
	GradeRaw Grade = 0
	// GradeGem is the PSA 10 tier.
	GradeGem Grade = 10
)

// IsGem reports whether the grade is the PSA 10 tier.
func (g Grade) IsGem() bool {
	return g == GradeGem
}

// IsRaw reports whether the grade is the ungraded tier.
func (g Grade) IsRaw() bool {
	return g == GradeRaw
}

// String formats the grade the way the upstream API keys population
// maps, e.g. 8.0, 9.5, 10.0.
func (g Grade) String() string {
	return strconv.FormatFloat(float64(g), 'f', 1, 64)
}

// ParseGrade parses a population-map key like "9.5" into a Grade.
func ParseGrade(s string) (Grade, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return Grade(f), nil
}
