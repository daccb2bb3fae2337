package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gradescout/gradescout/internal/api"
	"github.com/gradescout/gradescout/internal/cache"
	"github.com/gradescout/gradescout/internal/candidates"
	"github.com/gradescout/gradescout/internal/config"
	"github.com/gradescout/gradescout/internal/database"
	"github.com/gradescout/gradescout/internal/ingest"
	"github.com/gradescout/gradescout/internal/marketdata"
	"github.com/gradescout/gradescout/internal/updater"
)

func main() {
	cfg := config.Load()

	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	gateway, err := cache.NewGateway(cfg.CacheDir)
	if err != nil {
		log.Fatalf("Failed to initialize cache gateway: %v", err)
	}

	client := marketdata.NewClient(cfg.MarketAPIBaseURL, cfg.MarketAPIToken, cfg.ProxyURL, cfg.RequestDelay)
	ingestor := ingest.New(db, cfg.GradingCost)
	fileCache := candidates.NewFileCache(db, cfg.CacheDir)
	upd := updater.New(db, client, gateway, ingestor, fileCache, cfg.GradingCost)

	// Cancellable context for graceful shutdown of background work.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go upd.Start(ctx, cfg.UpdateInterval)

	router := api.SetupRouter(cfg, fileCache, upd, ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the update loop and any in-flight cycle.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
