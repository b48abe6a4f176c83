// Package api exposes the transaction service over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transfer-antifraud-saga/internal/platform/health"
	"github.com/transfer-antifraud-saga/internal/platform/middleware"
	"github.com/transfer-antifraud-saga/internal/transaction_service/api/handler"
)

// Dependencies are the pieces the router mounts
type Dependencies struct {
	Transactions   *handler.TransactionHandler
	Health         *health.Handler
	Metrics        http.Handler
	RequestMetrics middleware.RequestObserver
}

// NewRouter builds the gin engine with middleware and routes. production
// switches gin to release mode.
func NewRouter(logger *slog.Logger, production bool, deps Dependencies) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	if deps.RequestMetrics != nil {
		r.Use(middleware.Metrics(deps.RequestMetrics))
	}

	v1 := r.Group("/api/v1")
	{
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", deps.Transactions.CreateTransaction)
			transactions.GET("", deps.Transactions.ListTransactions)
			transactions.GET("/:id", deps.Transactions.GetTransaction)
		}
	}

	r.GET("/health", deps.Health.Serve)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	return r
}
