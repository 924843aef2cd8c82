package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tibyan/pkg/analytics"
)

// GetAnalytics serves the time-windowed report for the caller's scope.
// Partial reports are never returned: a store failure is a 500.
func GetAnalytics(engine *analytics.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		timeRange := c.DefaultQuery("timeRange", analytics.Range7d)
		switch timeRange {
		case analytics.Range7d, analytics.Range30d, analytics.Range90d:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"msg": "timeRange must be one of 7d, 30d, 90d"})
			return
		}

		reqScope := requestScope(c)
		scope := analytics.Scope{OwnerID: reqScope.OwnerID, Channel: reqScope.Channel}

		rep, err := engine.Report(c.Request.Context(), scope, timeRange)
		if err != nil {
			log.Printf("[analytics] report (owner=%d channel=%s range=%s) failed: %v",
				scope.OwnerID, scope.Channel, timeRange, err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to compute analytics"})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}
