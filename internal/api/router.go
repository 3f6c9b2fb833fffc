package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medikon.dev/scan-pipeline/pkg/metrics"
)

// setupRouter builds the gin engine with middleware and all routes.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(s.requestIDMiddleware())
	router.Use(s.loggingMiddleware())
	router.Use(gin.Recovery())
	router.Use(cors.New(s.corsConfig()))
	if s.metrics != nil {
		router.Use(s.metricsMiddleware())
	}

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/scans", s.handleCreateScans)

		devices := api.Group("/devices")
		{
			devices.GET("", s.handleListDevices)
			devices.POST("", s.handleCreateDevice)
			devices.GET("/:id", s.handleGetDevice)
			devices.PUT("/:id", s.handleRenameDevice)
			devices.DELETE("/:id", s.handleDeleteDevice)
			devices.GET("/:id/results", s.handleListDeviceResults)
		}

		results := api.Group("/results")
		{
			results.GET("", s.handleListResults)
			results.POST("", s.handleCreateResult)
			results.GET("/:id", s.handleGetResult)
			results.DELETE("/:id", s.handleDeleteResult)
		}
	}

	return router
}

// corsConfig builds the CORS policy. With no configured origins the
// API is open, matching its use behind internal load balancers.
func (s *Server) corsConfig() cors.Config {
	config := cors.DefaultConfig()
	if len(s.config.CORSOrigins) > 0 {
		config.AllowOrigins = s.config.CORSOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	return config
}

// handleHealthz reports liveness and database reachability.
func (s *Server) handleHealthz(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "database not initialized",
		})
		return
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
