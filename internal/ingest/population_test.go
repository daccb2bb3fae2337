package ingest

import (
	"encoding/json"
	"testing"

	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/models"
)

func TestIngestPopulation(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	payload := `{"10.0": 647, "9.0": 2000, "8.0": 500}`
	n, err := ing.IngestPopulation(1, envelope(t, payload))
	if err != nil {
		t.Fatalf("IngestPopulation failed: %v", err)
	}
	if n != 3 {
		t.Errorf("upserted %d rows, want 3", n)
	}

	var gem models.PsaPopulation
	if err := db.First(&gem, "card_id = ? AND grade = ?", 1, float64(models.GradeGem)).Error; err != nil {
		t.Fatalf("gem row not written: %v", err)
	}
	if gem.PopulationCount != 647 {
		t.Errorf("PopulationCount = %d, want 647", gem.PopulationCount)
	}

	// Ingestion triggers the analytics recalc.
	var ca models.CardAnalytics
	if err := db.First(&ca, "card_id = ?", 1).Error; err != nil {
		t.Fatalf("analytics not recomputed: %v", err)
	}
	if ca.Psa10Population != 647 || ca.OtherPopulation != 2500 {
		t.Errorf("analytics = %d/%d, want 647/2500", ca.Psa10Population, ca.OtherPopulation)
	}
}

func TestIngestPopulationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	want := map[string]int{"10.0": 647, "9.5": 120, "9.0": 2000}
	raw, _ := json.Marshal(want)

	if _, err := ing.IngestPopulation(5, envelope(t, string(raw))); err != nil {
		t.Fatalf("IngestPopulation failed: %v", err)
	}

	got, stamp, err := ing.ReadPopulationWide(5)
	if err != nil {
		t.Fatalf("ReadPopulationWide failed: %v", err)
	}
	if stamp != "2024-06-01 12:00:00" {
		t.Errorf("stamp = %q, want 2024-06-01 12:00:00", stamp)
	}
	if len(got) != len(want) {
		t.Fatalf("read back %d grades, want %d", len(got), len(want))
	}
	for grade, count := range want {
		if got[grade] != count {
			t.Errorf("grade %s = %d, want %d", grade, got[grade], count)
		}
	}
}

func TestIngestPopulationSkipsBadEntries(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	payload := `{"10.0": 647, "updated_date": "2024-06-01 12:00:00", "total": 3000, "9.0": "lots"}`
	n, err := ing.IngestPopulation(1, envelope(t, payload))
	if err != nil {
		t.Fatalf("IngestPopulation failed: %v", err)
	}
	if n != 1 {
		t.Errorf("upserted %d rows, want 1", n)
	}
}

func TestIngestPopulationOverwrites(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	if _, err := ing.IngestPopulation(1, envelope(t, `{"10.0": 100, "9.0": 200}`)); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if _, err := ing.IngestPopulation(1, envelope(t, `{"10.0": 150, "9.0": 200}`)); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	var count int64
	db.Model(&models.PsaPopulation{}).Where("card_id = ?", 1).Count(&count)
	if count != 2 {
		t.Errorf("population rows = %d, want 2", count)
	}

	wide, _, err := ing.ReadPopulationWide(1)
	if err != nil {
		t.Fatalf("ReadPopulationWide failed: %v", err)
	}
	if wide["10.0"] != 150 {
		t.Errorf("gem count = %d, want 150", wide["10.0"])
	}
}

func TestLooksSubstantive(t *testing.T) {
	tests := []struct {
		name string
		env  *cache.Envelope
		want bool
	}{
		{"nil envelope", nil, false},
		{"no data", &cache.Envelope{}, false},
		{"not a map", envelope(t, `[1, 2, 3]`), false},
		{"empty map", envelope(t, `{}`), false},
		{"timestamp only", envelope(t, `{"updated_date": "2024-06-01 12:00:00"}`), false},
		{"single grade", envelope(t, `{"10.0": 647}`), false},
		{"two grades", envelope(t, `{"10.0": 647, "9.0": 2000}`), true},
		{"grades plus noise", envelope(t, `{"10.0": 647, "9.0": 2000, "updated_date": "x"}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksSubstantive(tt.env); got != tt.want {
				t.Errorf("LooksSubstantive() = %v, want %v", got, tt.want)
			}
		})
	}
}
