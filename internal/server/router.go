// Package server exposes the change desk to the browser form over HTTP.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine serving desk.
func NewRouter(desk Desk, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger(logger))
	router.Use(Sessions())

	NewHandler(desk, logger).RegisterRoutes(router)
	return router
}
