package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tibyan/pkg/ingest"
)

// IngestMessage accepts a normalized inbound event from a channel
// adapter and threads it into its conversation. Classification failures
// are absorbed by the gateway; only validation and persistence errors
// reach the adapter.
func IngestMessage(p *ingest.Processor, hub *LiveHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev ingest.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid event payload"})
			return
		}

		conv, err := p.Ingest(c.Request.Context(), ev)
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidEvent) {
				c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
				return
			}
			log.Printf("[webhook] ingest of message %s (channel=%s customer=%s) failed: %v",
				ev.MessageID, ev.Channel, ev.CustomerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to process message"})
			return
		}

		if hub != nil {
			hub.BroadcastConversation(conv)
		}
		c.JSON(http.StatusCreated, conversationResponse(conv))
	}
}
