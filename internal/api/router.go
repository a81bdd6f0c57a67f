package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api/handler"
	"github.com/retail-banking-ledger/internal/api/middleware"
	"github.com/retail-banking-ledger/internal/config"
)

// Handlers groups the route handlers mounted by the router
type Handlers struct {
	Owners       *handler.OwnerHandler
	Transactions *handler.TransactionHandler
	Planning     *handler.PlanningHandler
}

// Observability is the metrics surface the router needs
type Observability interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, cfg *config.ServerConfig, h Handlers, obs Observability) {
	if obs != nil {
		r.Use(middleware.Metrics(obs))
	}
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.NewOwnerRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())
	v1.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	{
		v1.POST("/owners", h.Owners.Create)

		authed := v1.Group("", middleware.RequireOwner())
		authed.GET("/owners/me", h.Owners.Me)

		accounts := authed.Group("/accounts")
		{
			accounts.POST("", h.Owners.OpenAccount)
			accounts.POST("/:id/close", h.Owners.CloseAccount)
			accounts.POST("/:id/block", h.Owners.BlockAccount)
			accounts.POST("/:id/unblock", h.Owners.UnblockAccount)
			accounts.POST("/:id/deposit", h.Transactions.Deposit)
			accounts.POST("/:id/withdraw", h.Transactions.Withdraw)
		}

		transfers := authed.Group("/transfers")
		{
			transfers.POST("/internal", h.Transactions.TransferInternal)
			transfers.POST("/external", h.Transactions.TransferExternal)
		}

		authed.POST("/exchanges", h.Transactions.Exchange)

		bills := authed.Group("/bills")
		{
			bills.POST("", h.Planning.AddBill)
			bills.POST("/:id/pay", h.Planning.PayBill)
		}

		goals := authed.Group("/goals")
		{
			goals.POST("", h.Planning.CreateGoal)
			goals.POST("/:id/contributions", h.Planning.Contribute)
			goals.POST("/:id/abandon", h.Planning.AbandonGoal)
		}

		authed.POST("/recipients", h.Owners.SaveRecipient)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if obs != nil {
		r.GET("/metrics", gin.WrapH(obs.Handler()))
	}
}
