package analytics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExpectedValue(t *testing.T) {
	tests := []struct {
		name       string
		rawPrice   float64
		psa10Price float64
		gemRate    float64
		expected   float64
	}{
		{"typical card", 50, 150, 0.4, 90},
		{"certain gem", 50, 150, 1.0, 150},
		{"certain miss", 50, 150, 0.0, 50},
		{"no spread", 80, 80, 0.5, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpectedValue(tt.rawPrice, tt.psa10Price, tt.gemRate)
			if !almostEqual(got, tt.expected) {
				t.Errorf("ExpectedValue(%g, %g, %g) = %g, want %g", tt.rawPrice, tt.psa10Price, tt.gemRate, got, tt.expected)
			}
		})
	}
}

func TestComputeFinancials(t *testing.T) {
	// raw 50, psa10 150, gem rate 0.4, grading cost 29:
	// EV = 0.4*150 + 0.6*50 = 90, total = 79, net = 11, factor = 11/79
	fin := ComputeFinancials(50, 150, 0.4, 29)

	if !almostEqual(fin.ExpectedValue, 90) {
		t.Errorf("ExpectedValue = %g, want 90", fin.ExpectedValue)
	}
	if !almostEqual(fin.TotalCost, 79) {
		t.Errorf("TotalCost = %g, want 79", fin.TotalCost)
	}
	if !almostEqual(fin.NetGain, 11) {
		t.Errorf("NetGain = %g, want 11", fin.NetGain)
	}
	if !almostEqual(fin.LucrativeFactor, 11.0/79.0) {
		t.Errorf("LucrativeFactor = %g, want %g", fin.LucrativeFactor, 11.0/79.0)
	}
}

func TestComputeFinancialsNegativeGain(t *testing.T) {
	// Grading a card with no spread always loses the grading fee
	// in expectation when the gem rate is below 1.
	fin := ComputeFinancials(100, 100, 0.5, 29)
	if !almostEqual(fin.NetGain, -29) {
		t.Errorf("NetGain = %g, want -29", fin.NetGain)
	}
	if fin.LucrativeFactor >= 0 {
		t.Errorf("LucrativeFactor = %g, want negative", fin.LucrativeFactor)
	}
}

func TestGemRate(t *testing.T) {
	tests := []struct {
		name     string
		psa10    int
		other    int
		expected float64
	}{
		{"typical", 647, 2500, 647.0 / 3147.0},
		{"all gems", 100, 0, 1},
		{"no gems", 0, 100, 0},
		{"empty population is zero, not NaN", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GemRate(tt.psa10, tt.other)
			if !almostEqual(got, tt.expected) {
				t.Errorf("GemRate(%d, %d) = %g, want %g", tt.psa10, tt.other, got, tt.expected)
			}
		})
	}
}
