package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"tibyan/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type feedClient struct {
	conn    *websocket.Conn
	ownerID uint
	admin   bool
	sendMu  sync.Mutex
}

// LiveHub pushes conversation updates to connected dashboard clients.
// Each client only receives conversations in its owner scope; admins
// receive everything.
type LiveHub struct {
	secret string

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

func NewLiveHub(secret string) *LiveHub {
	return &LiveHub{secret: secret, clients: map[*feedClient]struct{}{}}
}

func (h *LiveHub) add(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *LiveHub) remove(c *feedClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// BroadcastConversation fans a fresh snapshot out to every client whose
// scope covers it. Slow or dead clients are dropped rather than
// blocking ingestion.
func (h *LiveHub) BroadcastConversation(conv *models.Conversation) {
	if h == nil || conv == nil {
		return
	}
	payload := gin.H{"type": "conversation", "data": conversationResponse(conv)}

	h.mu.Lock()
	targets := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		if c.admin || c.ownerID == conv.OwnerID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.sendMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteJSON(payload)
		c.sendMu.Unlock()
		if err != nil {
			log.Printf("[ws] dropping feed client (owner=%d): %v", c.ownerID, err)
			h.remove(c)
			_ = c.conn.Close()
		}
	}
}

// ConversationFeed upgrades the request and keeps the connection in the
// hub until the client goes away. Auth is via ?token=JWT since browser
// WebSocket clients cannot set headers.
func (h *LiveHub) ConversationFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token claims"})
			return
		}
		var ownerID uint
		if sub, ok := claims["sub"].(string); ok {
			id64, _ := strconv.ParseUint(sub, 10, 64)
			ownerID = uint(id64)
		} else if subf, ok := claims["sub"].(float64); ok {
			ownerID = uint(subf)
		}
		if ownerID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid subject in token"})
			return
		}
		role, _ := claims["role"].(string)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}

		client := &feedClient{conn: conn, ownerID: ownerID, admin: role == models.RoleAdmin}
		h.add(client)
		defer func() {
			h.remove(client)
			_ = conn.Close()
		}()

		conn.SetReadLimit(1 << 16)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})

		// Ping loop keeps intermediaries from reaping idle feeds.
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			t := time.NewTicker(30 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-stop:
					return
				case <-t.C:
					client.sendMu.Lock()
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					err := conn.WriteMessage(websocket.PingMessage, nil)
					client.sendMu.Unlock()
					if err != nil {
						return
					}
				}
			}
		}()

		// The feed is push-only; the read loop just drains control
		// frames and detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
