package websocket

import (
	"github.com/gin-gonic/gin"

	"tibyan/controllers"
	"tibyan/middleware"
)

func Register(r *gin.Engine, hub *controllers.LiveHub) {
	r.GET("/ws/conversations", middleware.RateLimit(), hub.ConversationFeed())
}
