// Package updater orchestrates the five-stage update cycle: refresh
// stale set prices, fill missing population data, fill missing sales
// data, resweep every derived metric, and invalidate the materialized
// candidate list. The cycle is resumable by construction: every stage
// re-derives its worklist from the store, so a crashed or cancelled
// cycle just leaves less work for the next one.
package updater

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/gradescout/gradescout/internal/analytics"
	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/candidates"
	"github.com/gradescout/gradescout/internal/ingest"
	"github.com/gradescout/gradescout/internal/marketdata"
	"github.com/gradescout/gradescout/internal/metrics"
	"github.com/gradescout/gradescout/internal/models"
	"github.com/gradescout/gradescout/internal/refreshlog"
)

const (
	// Sets are re-fetched when their price data is older than this.
	setStaleness = 24 * time.Hour

	// Population refresh targets: profitable by these thresholds and
	// missing analytics.
	popPriceDelta = 50
	popPsa10Min   = 80

	// Sales refresh targets: profitable by these thresholds and
	// missing sales volume.
	salesPriceDelta = 20
	salesPsa10Min   = 70

	// Cards attempted within this window are skipped, whether or not
	// the attempt produced data.
	refreshCooldown = 7 * 24 * time.Hour
)

// ErrCycleRunning is returned when a cycle is requested while another
// is still in flight.
var ErrCycleRunning = errors.New("update cycle already running")

// Updater runs update cycles. At most one cycle runs at a time.
type Updater struct {
	db          *gorm.DB
	client      *marketdata.Client
	gateway     *cache.Gateway
	ingestor    *ingest.Ingestor
	fileCache   *candidates.FileCache
	gradingCost float64

	mu sync.Mutex
}

func New(db *gorm.DB, client *marketdata.Client, gateway *cache.Gateway, ingestor *ingest.Ingestor, fileCache *candidates.FileCache, gradingCost float64) *Updater {
	return &Updater{
		db:          db,
		client:      client,
		gateway:     gateway,
		ingestor:    ingestor,
		fileCache:   fileCache,
		gradingCost: gradingCost,
	}
}

// RunCycle runs one full update cycle. Per-entity failures are logged
// and skipped; only a cancelled context aborts the cycle. Returns
// ErrCycleRunning if a cycle is already in flight.
func (u *Updater) RunCycle(ctx context.Context) error {
	if !u.mu.TryLock() {
		return ErrCycleRunning
	}
	defer u.mu.Unlock()

	start := time.Now()
	log.Printf("updater: starting update cycle")

	if err := u.refreshStaleSets(ctx); err != nil {
		return err
	}
	if err := u.refreshMissingPopulations(ctx); err != nil {
		return err
	}
	if err := u.refreshMissingSales(ctx); err != nil {
		return err
	}

	log.Printf("updater: recomputing derived metrics for all cards")
	swept, err := analytics.RecalcAllDerived(u.db, u.gradingCost)
	if err != nil {
		log.Printf("updater: derived-metric sweep failed: %v", err)
	}
	metrics.UpdateStageEntities.WithLabelValues("derived_sweep").Set(float64(swept))

	log.Printf("updater: invalidating candidate cache")
	u.fileCache.Invalidate()

	metrics.UpdateCyclesTotal.Inc()
	metrics.UpdateCycleDuration.Observe(time.Since(start).Seconds())
	log.Printf("updater: update cycle finished in %s", time.Since(start).Round(time.Second))
	return nil
}

// refreshStaleSets re-fetches price data for sets never ingested or
// last ingested more than setStaleness ago.
func (u *Updater) refreshStaleSets(ctx context.Context) error {
	cutoff := time.Now().Add(-setStaleness)
	var setIDs []int
	err := u.db.Model(&models.Set{}).
		Where("updated_at IS NULL OR updated_at <= ?", cutoff).
		Order("id").
		Pluck("id", &setIDs).Error
	if err != nil {
		log.Printf("updater: failed to list stale sets: %v", err)
		return nil
	}

	metrics.UpdateStageEntities.WithLabelValues("stale_sets").Set(float64(len(setIDs)))
	if len(setIDs) == 0 {
		log.Printf("updater: no stale set data to update")
		return nil
	}
	log.Printf("updater: refreshing %d stale sets", len(setIDs))

	for _, setID := range setIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		env := u.gateway.Resolve(ctx, cache.SetPricesKey(setID), func(ctx context.Context) ([]byte, error) {
			return u.client.CardsInSet(ctx, setID)
		}, cache.ForceNetwork)
		if _, err := u.ingestor.IngestSetPrices(env); err != nil {
			log.Printf("updater: set %d price ingest failed: %v", setID, err)
		}
	}
	return nil
}

// refreshMissingPopulations fetches population data for profitable
// cards that have none. The attempt is logged whether or not the fetch
// produced a substantive payload, so persistently missing cards fall
// under the cooldown instead of being retried every cycle.
func (u *Updater) refreshMissingPopulations(ctx context.Context) error {
	targets, err := candidates.WithoutAnalytics(u.db, popPriceDelta, popPsa10Min, refreshCooldown)
	if err != nil {
		log.Printf("updater: failed to list population refresh targets: %v", err)
		return nil
	}

	metrics.UpdateStageEntities.WithLabelValues("population_refresh").Set(float64(len(targets)))
	if len(targets) == 0 {
		log.Printf("updater: no cards need population updates")
		return nil
	}
	log.Printf("updater: refreshing population data for %d cards", len(targets))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		cardID := t.CardID
		env := u.gateway.Resolve(ctx, cache.PopulationKey(cardID), func(ctx context.Context) ([]byte, error) {
			return u.client.PopulationByCard(ctx, cardID)
		}, cache.ForceNetwork)

		if ingest.LooksSubstantive(env) {
			if _, err := u.ingestor.IngestPopulation(cardID, env); err != nil {
				log.Printf("updater: card %d population ingest failed: %v", cardID, err)
			}
		} else {
			log.Printf("updater: card %d population payload not substantive, skipping ingest", cardID)
		}

		if err := refreshlog.LogGemRateAttempts(u.db, []int{cardID}, time.Now()); err != nil {
			log.Printf("updater: card %d attempt logging failed: %v", cardID, err)
		}
	}
	return nil
}

// refreshMissingSales fetches sale transactions for profitable cards
// that have no sales volume yet.
func (u *Updater) refreshMissingSales(ctx context.Context) error {
	targets, err := candidates.WithoutSalesVolume(u.db, salesPriceDelta, salesPsa10Min, refreshCooldown)
	if err != nil {
		log.Printf("updater: failed to list sales refresh targets: %v", err)
		return nil
	}

	metrics.UpdateStageEntities.WithLabelValues("sales_refresh").Set(float64(len(targets)))
	if len(targets) == 0 {
		log.Printf("updater: no cards need sales volume updates")
		return nil
	}
	log.Printf("updater: refreshing sales data for %d cards", len(targets))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		cardID := t.CardID
		env := u.gateway.Resolve(ctx, cache.TransactionsKey(cardID), func(ctx context.Context) ([]byte, error) {
			return u.client.TransactionsByCard(ctx, cardID, 1)
		}, cache.ForceNetwork)

		if _, err := u.ingestor.IngestSales(env); err != nil {
			log.Printf("updater: card %d sales ingest failed: %v", cardID, err)
		}

		if err := refreshlog.LogSalesVolumeAttempts(u.db, []int{cardID}, time.Now()); err != nil {
			log.Printf("updater: card %d attempt logging failed: %v", cardID, err)
		}
	}
	return nil
}

// Start runs update cycles on a fixed interval until the context is
// cancelled. An interval of zero disables the loop.
func (u *Updater) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("updater: background loop disabled")
		return
	}

	log.Printf("updater: running update cycles every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("updater: background loop stopped")
			return
		case <-ticker.C:
			if err := u.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
				log.Printf("updater: cycle failed: %v", err)
			}
		}
	}
}
