// Package api serves the operational endpoints of the anti-fraud service. The
// service has no business HTTP surface; it only talks to Kafka.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transfer-antifraud-saga/internal/platform/health"
	"github.com/transfer-antifraud-saga/internal/platform/middleware"
)

func NewRouter(logger *slog.Logger, production bool, healthHandler *health.Handler, metricsHandler http.Handler) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))

	r.GET("/health", healthHandler.Serve)
	r.GET("/metrics", gin.WrapH(metricsHandler))

	return r
}
