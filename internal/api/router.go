package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/handlers"
	"github.com/dnv-opensource/WindFarmer-automation/internal/api/middleware"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
)

type Deps struct {
	Store        *store.Store
	Calculations *handlers.CalculationHandler
	PresetsFile  string
	CORSOrigins  []string
	Logger       *slog.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("module", "api"))

	router := gin.New()
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	breakdown := handlers.NewBreakdownHandler()
	ledger := handlers.NewLedgerHandler(d.Store)
	catalog := handlers.NewCatalogHandler(d.PresetsFile)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/breakdown", breakdown.Breakdown)

		v1.GET("/jobs", ledger.ListJobs)
		v1.GET("/jobs/:id", ledger.GetJob)
		v1.GET("/runs", ledger.ListRuns)
		v1.GET("/runs/:id", ledger.GetRun)
		v1.GET("/runs/:id/summaries", ledger.ListSummaries)
		v1.GET("/events", ledger.ListEvents)

		v1.GET("/models", catalog.ListModels)
		v1.GET("/presets", catalog.ListPresets)

		if d.Calculations != nil {
			v1.GET("/status", d.Calculations.Status)
			v1.POST("/calculations", d.Calculations.Submit)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
