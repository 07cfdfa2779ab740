package auth

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// guestTokenTTL keeps guest carts alive long enough for slow purchase
// decisions on big mirrors.
const guestTokenTTL = 30 * 24 * time.Hour

// POST /auth/guest
//
// Issues a stable guest token for the device. The client stores it locally
// and presents it as a bearer token; server-side guest records are created
// lazily on the first cart event.
func CreateGuestUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		guestToken := uuid.NewString()

		guest := models.GuestUser{
			Token:     guestToken,
			ExpiresAt: time.Now().Add(guestTokenTTL),
		}
		if err := db.Create(&guest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create guest"})
			return
		}

		token, err := issueGuestToken(guestToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"guest_token": guestToken,
			"token":       token,
			"expires_at":  guest.ExpiresAt,
		})
	}
}

func issueGuestToken(id string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id,
		"role":    "guest",
		"exp":     time.Now().Add(guestTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
