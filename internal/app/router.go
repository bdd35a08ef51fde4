package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vmshift.io/vmshift/internal/api/handlers"
	"vmshift.io/vmshift/internal/api/middleware"
	"vmshift.io/vmshift/internal/config"
	"vmshift.io/vmshift/internal/metrics"
)

func newRouter(cfg *config.Config, server *handlers.Server, collectors *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	router.GET("/", server.Root)
	router.GET("/health", server.Health)
	router.GET("/health/detailed", server.DetailedHealth)
	router.GET("/ready", server.Ready)
	router.GET("/live", server.Live)
	router.GET("/metrics", gin.WrapH(collectors.Handler()))

	v1 := router.Group("/api/v1")

	vms := v1.Group("/vms")
	vms.GET("", server.ListVMs)
	vms.POST("", server.CreateVM)
	vms.POST("/discover", server.DiscoverVMs)
	vms.GET("/:id", server.GetVM)
	vms.PUT("/:id", server.UpdateVM)
	vms.DELETE("/:id", server.DeleteVM)
	vms.POST("/:id/analyze", server.AnalyzeVM)

	migrations := v1.Group("/migrations")
	migrations.GET("", server.ListMigrations)
	migrations.POST("", server.CreateMigration)
	migrations.GET("/:id", server.GetMigration)
	migrations.PUT("/:id", server.UpdateMigration)
	migrations.DELETE("/:id", server.DeleteMigration)
	migrations.POST("/:id/start", server.StartMigration)
	migrations.POST("/:id/cancel", server.CancelMigration)
	migrations.POST("/:id/rollback", server.RollbackMigration)
	migrations.GET("/:id/artifacts", server.GetMigrationArtifacts)
	migrations.POST("/:id/generate-artifacts", server.GenerateMigrationArtifacts)

	tasks := v1.Group("/tasks")
	tasks.GET("", server.ListTasks)
	tasks.GET("/workers/status", server.WorkerStatus)
	tasks.GET("/:id", server.GetTask)
	tasks.DELETE("/:id", server.RevokeTask)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
