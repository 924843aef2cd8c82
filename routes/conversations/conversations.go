package conversations

import (
	"github.com/gin-gonic/gin"

	"tibyan/controllers"
	"tibyan/pkg/store"
)

func Register(g *gin.RouterGroup, st store.Store) {
	g.GET("/conversations", controllers.ListConversations(st))
	g.GET("/conversations/search", controllers.SearchConversations(st))
	g.GET("/conversations/:conversation_id", controllers.GetConversation(st))
	g.PATCH("/conversations/:conversation_id/status", controllers.SetConversationStatus(st))
	g.PATCH("/conversations/:conversation_id/handled", controllers.SetConversationHandled(st))
}
