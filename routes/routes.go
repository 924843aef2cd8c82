package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tibyan/controllers"
	"tibyan/middleware"
	"tibyan/pkg/analytics"
	"tibyan/pkg/ingest"
	"tibyan/pkg/store"

	analyticsRoutes "tibyan/routes/analytics"
	convRoutes "tibyan/routes/conversations"
	ingestRoutes "tibyan/routes/ingest"
	websocketRoutes "tibyan/routes/websocket"
)

// Deps carries the wired services the route groups close over.
type Deps struct {
	Store     store.Store
	Processor *ingest.Processor
	Engine    *analytics.Engine
	Hub       *controllers.LiveHub
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "sentiment ingestion backend running"})
	})

	ingestRoutes.Register(r, deps.Processor, deps.Hub)
	websocketRoutes.Register(r, deps.Hub)

	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(deps.JWTSecret))
	convRoutes.Register(protected, deps.Store)
	analyticsRoutes.Register(protected, deps.Engine)
}
