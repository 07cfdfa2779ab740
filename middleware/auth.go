package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateToken requires an authenticated (non-guest) user token.
func ValidateToken(c *gin.Context) {
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
		c.Abort()
		return
	}
	claims, err := parseToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return
	}
	if role, _ := claims["role"].(string); role == "guest" {
		c.JSON(http.StatusForbidden, gin.H{"error": "A user account is required"})
		c.Abort()
		return
	}
	c.Set("user_id", claims["user_id"])
	c.Next()
}

// Identify resolves the caller without requiring authentication. A user
// token sets user_id, a guest token sets guest_token, and an anonymous
// request passes through untouched (the cart then runs on the device-local
// tier).
func Identify(c *gin.Context) {
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if tokenString != "" {
		if claims, err := parseToken(tokenString); err == nil {
			role, _ := claims["role"].(string)
			id, _ := claims["user_id"].(string)
			if role == "guest" {
				c.Set("guest_token", id)
			} else if id != "" {
				c.Set("user_id", id)
			}
		}
	}
	c.Next()
}
