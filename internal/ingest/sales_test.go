package ingest

import (
	"testing"

	"github.com/gradescout/gradescout/internal/models"
)

const salesPayloadJSON = `{
	"transactions": [
		{
			"id": 9001, "card_id": 101, "date_sold": "Sat, 18 May 2024 00:00:00 GMT",
			"ebay_handle": "seller1", "ebay_item_id": "it-1", "marketplace": "ebay",
			"num_bids": 12, "psa_grade": 0.0, "set_id": 7, "sold_price": 119.99,
			"title": "Umbreon VMAX Alt Art raw"
		},
		{
			"id": 9002, "card_id": 101, "date_sold": "garbled",
			"ebay_handle": "seller2", "ebay_item_id": "it-2", "marketplace": "ebay",
			"num_bids": 3, "psa_grade": 10.0, "set_id": 7, "sold_price": 640.00,
			"title": "Umbreon VMAX PSA 10"
		}
	],
	"tcgplayer": [
		{"id": 7001, "card_id": 101, "created_at": "Sat, 18 May 2024 10:00:00 GMT",
		 "date_sold": "Fri, 17 May 2024 00:00:00 GMT", "interpolated": false,
		 "set_id": 7, "sold_price": 118.00}
	],
	"ebay_avg": [
		{"card_id": 101, "date_sold": "Sat, 18 May 2024 00:00:00 GMT",
		 "psa_grade": 0.0, "sold_price": 121.50, "volume": 4}
	]
}`

func TestIngestSales(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	n, err := ing.IngestSales(envelope(t, salesPayloadJSON))
	if err != nil {
		t.Fatalf("IngestSales failed: %v", err)
	}
	if n != 4 {
		t.Errorf("inserted %d rows, want 4", n)
	}

	// Marker row stamped from the envelope.
	var marker models.CardSales
	if err := db.First(&marker, "card_id = ?", 101).Error; err != nil {
		t.Fatalf("sales marker not written: %v", err)
	}
	if marker.UpdatedAt == nil {
		t.Error("marker stamp missing")
	}

	// The transaction with the garbled date is kept with a null date.
	var tx2 models.Transaction
	if err := db.First(&tx2, "source_id = ?", 9002).Error; err != nil {
		t.Fatalf("transaction with bad date dropped: %v", err)
	}
	if tx2.DateSold != nil {
		t.Errorf("DateSold = %v, want nil", tx2.DateSold)
	}

	var tx1 models.Transaction
	if err := db.First(&tx1, "source_id = ?", 9001).Error; err != nil {
		t.Fatalf("transaction not written: %v", err)
	}
	if tx1.DateSold == nil || tx1.DateSold.Format("2006-01-02") != "2024-05-18" {
		t.Errorf("DateSold = %v, want 2024-05-18", tx1.DateSold)
	}
	if tx1.Grade != models.GradeRaw || tx1.Price != 119.99 {
		t.Errorf("transaction fields wrong: %+v", tx1)
	}

	// Sales-volume recalc fires after commit.
	var sv models.SalesVolume
	if err := db.First(&sv, "card_id = ?", 101).Error; err != nil {
		t.Fatalf("sales volume not recomputed: %v", err)
	}
	if sv.Psa10Volume != 0 || sv.OtherVolume != 1 {
		t.Errorf("volume = %d/%d, want 0/1", sv.Psa10Volume, sv.OtherVolume)
	}
}

func TestIngestSalesReplayInsertsNothing(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	if _, err := ing.IngestSales(envelope(t, salesPayloadJSON)); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	n, err := ing.IngestSales(envelope(t, salesPayloadJSON))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if n != 0 {
		t.Errorf("replay inserted %d rows, want 0", n)
	}

	var txCount, tcgCount, ebayCount int64
	db.Model(&models.Transaction{}).Count(&txCount)
	db.Model(&models.TCGPlayerSale{}).Count(&tcgCount)
	db.Model(&models.EbayAverage{}).Count(&ebayCount)
	if txCount != 2 || tcgCount != 1 || ebayCount != 1 {
		t.Errorf("counts after replay = %d/%d/%d, want 2/1/1", txCount, tcgCount, ebayCount)
	}
}

func TestIngestSalesCardIdentityFallback(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	// No transactions: identity comes from the first tcgplayer sale.
	payload := `{
		"transactions": [],
		"tcgplayer": [{"id": 7002, "card_id": 55, "date_sold": "Fri, 17 May 2024 00:00:00 GMT", "set_id": 7, "sold_price": 10}]
	}`
	if _, err := ing.IngestSales(envelope(t, payload)); err != nil {
		t.Fatalf("IngestSales failed: %v", err)
	}

	var marker models.CardSales
	if err := db.First(&marker, "card_id = ?", 55).Error; err != nil {
		t.Fatalf("marker not written for tcgplayer-derived card: %v", err)
	}
}

func TestIngestSalesNoIdentityIsNothingToDo(t *testing.T) {
	db := openTestDB(t)
	ing := New(db, 29)

	n, err := ing.IngestSales(envelope(t, `{"transactions": [], "tcgplayer": [], "ebay_avg": []}`))
	if err != nil {
		t.Fatalf("IngestSales failed: %v", err)
	}
	if n != 0 {
		t.Errorf("inserted %d rows, want 0", n)
	}

	var count int64
	db.Model(&models.CardSales{}).Count(&count)
	if count != 0 {
		t.Errorf("marker rows = %d, want 0", count)
	}
}
