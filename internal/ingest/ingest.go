// Package ingest normalizes upstream snapshot payloads into relational
// rows. Each normalizer runs inside one transaction, skips malformed
// records with a warning rather than failing the batch, treats an
// empty payload as "nothing to do", and triggers the derived-metric
// recalculations for the cards it touched after commit.
package ingest

import (
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/metrics"
)

const (
	// releaseDateLayout is the card release-date format, e.g. 2021-06-18.
	releaseDateLayout = "2006-01-02"

	// saleDateLayout matches the RFC-1123-style sale timestamps once
	// the trailing " GMT" is stripped.
	saleDateLayout = "Mon, 02 Jan 2006 15:04:05"
)

// Ingestor writes normalized payloads into the store. gradingCost is
// threaded through so post-ingest financial recalcs price the grading
// fee consistently with the rest of the system.
type Ingestor struct {
	db          *gorm.DB
	gradingCost float64
}

func New(db *gorm.DB, gradingCost float64) *Ingestor {
	return &Ingestor{db: db, gradingCost: gradingCost}
}

// parseStamp converts an envelope freshness stamp into a nullable
// time. A missing or malformed stamp yields nil rather than an error;
// provenance is best-effort.
func parseStamp(updatedDate string) *time.Time {
	if updatedDate == "" {
		return nil
	}
	t, err := time.Parse(cache.TimeLayout, updatedDate)
	if err != nil {
		log.Printf("ingest: unparseable freshness stamp %q: %v", updatedDate, err)
		return nil
	}
	return &t
}

// parseSaleDate parses an upstream sale timestamp like
// "Sat, 18 May 2024 00:00:00 GMT". A missing date yields nil and the
// record is kept; a malformed one is warned about, counted, and also
// yields nil.
func parseSaleDate(raw, payload string) *time.Time {
	if raw == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(raw, " GMT")
	t, err := time.Parse(saleDateLayout, trimmed)
	if err != nil {
		log.Printf("ingest: unparseable sale date %q in %s payload: %v", raw, payload, err)
		metrics.MalformedRecordsTotal.WithLabelValues(payload).Inc()
		return nil
	}
	return &t
}
