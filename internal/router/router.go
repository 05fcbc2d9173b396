// Package router wires handlers and middleware into the Gin engine.
package router

import (
	"github.com/gin-gonic/gin"

	"hoadon/internal/handler"
	"hoadon/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	extractH *handler.ExtractHandler,
	jobH *handler.JobHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	extract := v1.Group("/extract")
	extract.POST("/upload", extractH.Upload)
	extract.POST("/text", extractH.Text)

	jobs := v1.Group("/jobs")
	jobs.GET("/:id", jobH.Get)
	jobs.PUT("/:id", jobH.Update)
	jobs.GET("/:id/export", jobH.Export)

	return r
}
