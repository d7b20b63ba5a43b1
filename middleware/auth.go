package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const UserContextKey = "userID"

// AuthMiddleware resolves the caller identity. With a secret configured only
// a valid bearer token counts: its sub (or user_id) claim becomes the
// identity and X-User-ID is ignored. Without a secret the X-User-ID header
// from a trusted gateway is the identity.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		var userID string
		if len(secret) > 0 {
			header := c.GetHeader("Authorization")
			if header == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization token required"})
				return
			}
			id, err := userFromBearer(header, secret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
				return
			}
			userID = id
		} else {
			userID = c.GetHeader("X-User-ID")
		}

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Set(UserContextKey, userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

func userFromBearer(header string, secret []byte) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("invalid token format")
	}
	tokenString := strings.TrimSpace(header[len("Bearer "):])

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	for _, key := range []string{"sub", "user_id"} {
		if id, ok := claims[key].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("token carries no user id")
}
