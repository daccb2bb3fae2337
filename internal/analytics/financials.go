package analytics

// Grading a raw card is a wager: pay the raw price plus the grading
// fee, receive the PSA 10 price with probability gemRate and the raw
// price otherwise.

// ExpectedValue returns the expected payout of grading one card.
func ExpectedValue(rawPrice, psa10Price, gemRate float64) float64 {
	return gemRate*psa10Price + (1-gemRate)*rawPrice
}

// Financials holds the derived financial metrics for one card.
type Financials struct {
	ExpectedValue   float64
	TotalCost       float64
	NetGain         float64
	LucrativeFactor float64
}

// ComputeFinancials derives all financial metrics from the three
// inputs. LucrativeFactor normalizes net gain by total cost so cards
// at different price points stay comparable.
func ComputeFinancials(rawPrice, psa10Price, gemRate, gradingCost float64) Financials {
	ev := ExpectedValue(rawPrice, psa10Price, gemRate)
	totalCost := rawPrice + gradingCost
	netGain := ev - totalCost

	return Financials{
		ExpectedValue:   ev,
		TotalCost:       totalCost,
		NetGain:         netGain,
		LucrativeFactor: netGain / totalCost,
	}
}

// GemRate returns psa10/(psa10+other), defined as 0 when the total
// population is 0.
func GemRate(psa10Pop, otherPop int) float64 {
	total := psa10Pop + otherPop
	if total == 0 {
		return 0
	}
	return float64(psa10Pop) / float64(total)
}
