package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextOwnerIDKey = "current_owner_id"
	ContextRoleKey    = "current_role"
)

// AuthMiddleware validates the bearer token and stores the owner id and
// role in the request context. Token issuance lives with the identity
// service; this only verifies and scopes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization header"})
			return
		}
		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			// only accept HMAC signing
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token claims"})
			return
		}

		var ownerID uint
		if sub, ok := claims["sub"].(string); ok {
			if v, err := strconv.ParseUint(sub, 10, 64); err == nil {
				ownerID = uint(v)
			}
		} else if subf, ok := claims["sub"].(float64); ok {
			// jwt lib may parse numeric as float64
			ownerID = uint(subf)
		}
		if ownerID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid subject in token"})
			return
		}

		role, _ := claims["role"].(string)

		c.Set(ContextOwnerIDKey, ownerID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// OwnerID returns the authenticated owner id from the context.
func OwnerID(c *gin.Context) uint {
	v, _ := c.Get(ContextOwnerIDKey)
	id, _ := v.(uint)
	return id
}

// IsAdmin reports whether the caller carries the elevated role.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(ContextRoleKey)
	role, _ := v.(string)
	return role == "admin"
}
