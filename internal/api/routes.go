package api

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gradescout/gradescout/internal/api/handlers"
	"github.com/gradescout/gradescout/internal/candidates"
	"github.com/gradescout/gradescout/internal/config"
	"github.com/gradescout/gradescout/internal/updater"
)

func SetupRouter(cfg *config.Config, fileCache *candidates.FileCache, u *updater.Updater, baseCtx context.Context) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(fileCache)
	updateHandler := handlers.NewUpdateHandler(u, baseCtx)

	api := router.Group("/api")
	{
		api.GET("/cards", cardHandler.GetCards)
		api.GET("/cards/filter", cardHandler.FilterCards)
		api.POST("/update-cycle", updateHandler.TriggerUpdateCycle)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
