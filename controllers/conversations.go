package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tibyan/middleware"
	"tibyan/models"
	"tibyan/pkg/store"
)

// requestScope derives the store scope from the authenticated caller.
// Admins may widen to all owners or pin another owner via ?ownerId=.
func requestScope(c *gin.Context) store.Scope {
	scope := store.Scope{OwnerID: middleware.OwnerID(c)}
	if middleware.IsAdmin(c) {
		scope.OwnerID = 0
		if v := c.Query("ownerId"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				scope.OwnerID = uint(id)
			}
		}
	}
	if ch := c.Query("channel"); ch != "" && models.ValidChannel(ch) {
		scope.Channel = ch
	}
	return scope
}

func conversationResponse(conv *models.Conversation) gin.H {
	messages := make([]gin.H, 0, len(conv.Messages))
	for i := range conv.Messages {
		m := &conv.Messages[i]
		item := gin.H{
			"id":          m.ChannelMsgID,
			"content":     m.Content,
			"sender":      m.Sender,
			"messageType": m.MessageType,
			"timestamp":   m.Timestamp,
		}
		if m.HasSentiment() {
			item["sentiment"] = m.Sentiment
		}
		messages = append(messages, item)
	}
	resp := gin.H{
		"id":         conv.ID,
		"publicId":   conv.PublicID,
		"ownerId":    conv.OwnerID,
		"channel":    conv.Channel,
		"customerId": conv.CustomerID,
		"status":     conv.Status,
		"startTime":  conv.StartTime,
		"endTime":    conv.EndTime,
		"summary":    conv.Summary,
		"messages":   messages,
		"handled":    conv.Handled,
		"tags":       conv.TagList(),
	}
	if conv.CustomerName != "" {
		resp["customerName"] = conv.CustomerName
	}
	if conv.CustomerPhone != "" {
		resp["customerPhone"] = conv.CustomerPhone
	}
	if conv.HandledAt != nil {
		resp["handledAt"] = conv.HandledAt
		resp["handledBy"] = conv.HandledBy
	}
	return resp
}

func ListConversations(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := store.ListFilter{Scope: requestScope(c)}
		if s := c.Query("status"); s != "" {
			if !models.ValidStatus(s) {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "unknown status"})
				return
			}
			f.Status = s
		}
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				f.Limit = n
			}
		}

		convs, err := st.ListConversations(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		out := make([]gin.H, 0, len(convs))
		for i := range convs {
			out = append(out, conversationResponse(&convs[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetConversation(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid conversation id"})
			return
		}
		ownerID := middleware.OwnerID(c)
		if middleware.IsAdmin(c) {
			ownerID = 0
		}
		conv, err := st.GetConversation(c.Request.Context(), uint(id), ownerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, conversationResponse(conv))
	}
}

func SearchConversations(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "q is required"})
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		convs, err := st.SearchConversations(c.Request.Context(), requestScope(c), q, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		out := make([]gin.H, 0, len(convs))
		for i := range convs {
			out = append(out, conversationResponse(&convs[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// SetConversationStatus applies an explicit lifecycle transition.
// Ingestion never changes status; this endpoint is the only way out of
// "active".
func SetConversationStatus(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid conversation id"})
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || !models.ValidStatus(body.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "status must be one of resolved, archived, escalated"})
			return
		}
		// Reactivation is not allowed: ingestion may have opened a fresh
		// active conversation for the same customer tuple since this one
		// was closed, and there can only ever be one active per tuple.
		if body.Status == models.StatusActive {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "conversations cannot be set back to active"})
			return
		}
		if err := ensureOwned(c, st, uint(id)); err != nil {
			return
		}
		if err := st.SetStatus(c.Request.Context(), uint(id), body.Status); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "status updated"})
	}
}

// SetConversationHandled marks a conversation as dealt with (or not).
// The backend record wins over any client-side cache of this flag.
func SetConversationHandled(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("conversation_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid conversation id"})
			return
		}
		var body struct {
			Handled bool   `json:"handled"`
			By      string `json:"by"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid payload"})
			return
		}
		if err := ensureOwned(c, st, uint(id)); err != nil {
			return
		}
		if err := st.SetHandled(c.Request.Context(), uint(id), body.Handled, body.By, time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "handled flag updated"})
	}
}

// ensureOwned rejects writes to conversations outside the caller's
// scope. Writes JSON responses itself; the returned error only signals
// the caller to stop.
func ensureOwned(c *gin.Context, st store.Store, id uint) error {
	ownerID := middleware.OwnerID(c)
	if middleware.IsAdmin(c) {
		ownerID = 0
	}
	_, err := st.GetConversation(c.Request.Context(), id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
		}
		return err
	}
	return nil
}
