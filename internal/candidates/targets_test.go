package candidates

import (
	"testing"
	"time"

	"github.com/gradescout/gradescout/internal/models"
)

func TestWithoutAnalytics(t *testing.T) {
	db := openTestDB(t)
	mustCreate(t, db, &models.Set{ID: 7, Name: "S", Code: "S"})

	release, _ := time.Parse("2006-01-02", "2021-08-27")
	seed := func(cardID int) {
		mustCreate(t, db, &models.Card{ID: cardID, SetID: 7, Name: "c", ReleaseDate: release})
		mustCreate(t, db, &models.CardStat{CardID: cardID, Grade: models.GradeRaw, AveragePrice: 20})
		mustCreate(t, db, &models.CardStat{CardID: cardID, Grade: models.GradeGem, AveragePrice: 150})
	}

	seed(1) // missing analytics, never attempted
	seed(2) // has analytics
	mustCreate(t, db, &models.CardAnalytics{CardID: 2, GemRate: 0.4, RecomputedAt: time.Now()})
	seed(3) // attempted yesterday, inside the cooldown
	mustCreate(t, db, &models.GemRateRefreshLog{CardID: 3, LastAttemptedAt: time.Now().Add(-24 * time.Hour)})
	seed(4) // attempted long ago, cooldown expired
	mustCreate(t, db, &models.GemRateRefreshLog{CardID: 4, LastAttemptedAt: time.Now().Add(-10 * 24 * time.Hour)})

	targets, err := WithoutAnalytics(db, 50, 80, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("WithoutAnalytics failed: %v", err)
	}

	got := map[int]bool{}
	for _, tgt := range targets {
		got[tgt.CardID] = true
		if tgt.RawPrice != 20 || tgt.Psa10Price != 150 {
			t.Errorf("target %d prices = %g/%g, want 20/150", tgt.CardID, tgt.RawPrice, tgt.Psa10Price)
		}
	}
	if len(targets) != 2 || !got[1] || !got[4] {
		t.Errorf("targets = %v, want cards 1 and 4", got)
	}
}

func TestWithoutSalesVolume(t *testing.T) {
	db := openTestDB(t)
	mustCreate(t, db, &models.Set{ID: 7, Name: "S", Code: "S"})

	release, _ := time.Parse("2006-01-02", "2021-08-27")
	mustCreate(t, db, &models.Card{ID: 1, SetID: 7, Name: "c", ReleaseDate: release})
	mustCreate(t, db, &models.CardStat{CardID: 1, Grade: models.GradeRaw, AveragePrice: 20})
	mustCreate(t, db, &models.CardStat{CardID: 1, Grade: models.GradeGem, AveragePrice: 150})

	targets, err := WithoutSalesVolume(db, 20, 70, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("WithoutSalesVolume failed: %v", err)
	}
	if len(targets) != 1 || targets[0].CardID != 1 {
		t.Fatalf("targets = %+v, want card 1", targets)
	}

	// Once a volume row exists the card drops out.
	now := time.Now()
	mustCreate(t, db, &models.SalesVolume{CardID: 1, LastSaleDate: &now, RecomputedAt: now})

	targets, err = WithoutSalesVolume(db, 20, 70, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("WithoutSalesVolume failed: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("targets = %+v, want none", targets)
	}
}
