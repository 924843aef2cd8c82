package ingest

import (
	"github.com/gin-gonic/gin"

	"tibyan/controllers"
	"tibyan/middleware"
	"tibyan/pkg/ingest"
)

// Register mounts the channel-adapter webhook. It stays outside the
// auth group; adapters are trusted edge services, and the rate limiter
// keeps any single source from flooding the classifier.
func Register(r *gin.Engine, p *ingest.Processor, hub *controllers.LiveHub) {
	r.POST("/api/webhook/message", middleware.RateLimit(), controllers.IngestMessage(p, hub))
}
