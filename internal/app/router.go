package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"busfare/internal/handler"
	"busfare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	AccountHandler *handler.AccountHandler
	AdminHandler   *handler.AdminHandler
	RedisClient    *redis.Client // optional, enables Idempotency-Key replay
	NewRelicApp    *newrelic.Application
	Logger         logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.TransactionAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		// Rider check-in / check-out.
		trip := v1.Group("/trip")
		{
			trip.POST("/start", deps.TripHandler.StartTrip)
			trip.POST("/end", deps.TripHandler.EndTrip)
			trip.GET("/:id", deps.TripHandler.GetTrip)
		}

		v1.POST("/account/pay-debt", deps.AccountHandler.PayDebt)

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", deps.AccountHandler.Register)
			accounts.GET("/:id", deps.AccountHandler.GetAccount)
			accounts.GET("/:id/history", deps.AccountHandler.History)
			accounts.GET("/:id/eligibility", deps.TripHandler.Eligibility)
			accounts.POST("/:id/top-up", deps.AccountHandler.TopUp)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/dashboard", deps.AdminHandler.Dashboard)
			admin.GET("/accounts", deps.AdminHandler.ListAccounts)
			admin.PUT("/fare", deps.AdminHandler.UpdateFare)
			admin.GET("/routes", deps.AdminHandler.ListRoutes)
			admin.POST("/routes", deps.AdminHandler.CreateRoute)
			admin.DELETE("/routes/:id", deps.AdminHandler.DeleteRoute)
		}
	}

	return router
}
