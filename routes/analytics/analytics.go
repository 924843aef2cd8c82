package analytics

import (
	"github.com/gin-gonic/gin"

	"tibyan/controllers"
	"tibyan/pkg/analytics"
)

func Register(g *gin.RouterGroup, engine *analytics.Engine) {
	g.GET("/analytics", controllers.GetAnalytics(engine))
}
