package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tutorcrm-api/api/swagger"
	"github.com/noah-isme/tutorcrm-api/pkg/config"
)

func registerRoutes(r *gin.Engine, cfg *config.Config, deps *app) {
	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	teacher := api.Group("/teachers/:id")

	availability := teacher.Group("/availability")
	availability.GET("/slots", deps.availability.Slots)
	availability.POST("/check", deps.availability.Check)
	availability.GET("/export", deps.availability.Export)
	availability.GET("/template", deps.settings.GetTemplate)
	availability.PUT("/template", deps.settings.UpsertTemplate)
	availability.GET("/blocks", deps.settings.ListBlocks)
	availability.POST("/blocks", deps.settings.CreateBlock)
	availability.DELETE("/blocks/:blockId", deps.settings.DeleteBlock)

	if deps.booking != nil {
		teacher.POST("/sessions", deps.booking.Book)
		teacher.PUT("/sessions/:sessionId", deps.booking.Reschedule)
	}
}
