// Command backfill loads historical API snapshots into the store and
// recomputes derived metrics. Snapshot files are recognized by the
// same key naming the cache gateway uses, so a cache directory from
// any environment can be replayed as-is.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gradescout/gradescout/internal/analytics"
	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/config"
	"github.com/gradescout/gradescout/internal/database"
	"github.com/gradescout/gradescout/internal/ingest"
	"github.com/gradescout/gradescout/internal/marketdata"
)

// Parameterized keys are matched by prefix; the card/set id is parsed
// from the remainder where the normalizer needs it.
const (
	setPricesPrefix  = "get_card_prices_setId="
	populationPrefix = "get_card_id_psa_pop_card_id="
	salesPrefix      = "get_volume_of_transactions_card_id="
)

func main() {
	snapshots := flag.String("snapshots", "", "directory of snapshot files to ingest")
	fetchSets := flag.Bool("fetch-sets", false, "fetch the live set catalog and register unknown sets")
	derived := flag.Bool("derived", false, "recompute analytics, financials and sales volume for all cards")
	flag.Parse()

	if *snapshots == "" && !*fetchSets && !*derived {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	ingestor := ingest.New(db, cfg.GradingCost)

	if *snapshots != "" {
		if err := ingestSnapshots(ingestor, *snapshots); err != nil {
			log.Fatalf("Snapshot ingestion failed: %v", err)
		}
	}

	if *fetchSets {
		if err := fetchSetCatalog(cfg, ingestor); err != nil {
			log.Fatalf("Set catalog fetch failed: %v", err)
		}
	}

	if *derived {
		log.Println("Recomputing derived metrics for all cards...")
		n, err := analytics.RecalcAllDerived(db, cfg.GradingCost)
		if err != nil {
			log.Fatalf("Derived recompute failed: %v", err)
		}
		log.Printf("Recomputed derived metrics for %d cards", n)
	}
}

// fetchSetCatalog pulls the live set listing through the gateway (so a
// snapshot lands in the cache dir too) and registers any unknown sets
// with a NULL freshness stamp, making them stale-set targets for the
// next update cycle.
func fetchSetCatalog(cfg *config.Config, ingestor *ingest.Ingestor) error {
	gateway, err := cache.NewGateway(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to initialize cache gateway: %w", err)
	}
	client := marketdata.NewClient(cfg.MarketAPIBaseURL, cfg.MarketAPIToken, cfg.ProxyURL, cfg.RequestDelay)

	ctx := context.Background()
	env := gateway.Resolve(ctx, cache.AllSetsKey(), client.ListSets, cache.ForceNetwork)
	n, err := ingestor.IngestAllSets(env)
	if err != nil {
		return err
	}
	log.Printf("Registered %d new sets", n)
	return nil
}

func ingestSnapshots(ingestor *ingest.Ingestor, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	ingested, skipped := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}
		var env cache.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("Skipping %s: not a snapshot envelope: %v", entry.Name(), err)
			skipped++
			continue
		}

		var rows int
		switch {
		case key == cache.AllSetsKey():
			rows, err = ingestor.IngestAllSets(&env)
		case key == cache.SetDetailsKey():
			rows, err = ingestor.IngestSetDetails(&env)
		case strings.HasPrefix(key, setPricesPrefix):
			rows, err = ingestor.IngestSetPrices(&env)
		case strings.HasPrefix(key, populationPrefix):
			cardID, convErr := strconv.Atoi(strings.TrimPrefix(key, populationPrefix))
			if convErr != nil {
				log.Printf("Skipping %s: bad card id: %v", entry.Name(), convErr)
				skipped++
				continue
			}
			rows, err = ingestor.IngestPopulation(cardID, &env)
		case strings.HasPrefix(key, salesPrefix):
			rows, err = ingestor.IngestSales(&env)
		default:
			skipped++
			continue
		}
		if err != nil {
			log.Printf("Failed to ingest %s: %v", entry.Name(), err)
			skipped++
			continue
		}
		log.Printf("Ingested %s (%d rows)", entry.Name(), rows)
		ingested++
	}

	log.Printf("Snapshot ingestion done: %d files ingested, %d skipped", ingested, skipped)
	return nil
}
