package cartControllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/services/cart"
)

// localCartCookie is the device-local cart snapshot: the server-rendered
// storefront keeps anonymous carts on the device, and the API round-trips
// them through this cookie.
const localCartCookie = "mx_cart"

const localCartMaxAge = 30 * 24 * 60 * 60

type AddToCartInput struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	VariationID string `json:"variation_id"`
	SizeName    string `json:"size_name"`
	FrameName   string `json:"frame_name"`
}

type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// sessionFrom assembles the cart session for this request: identity from the
// auth middleware, local snapshot from the cookie.
func sessionFrom(c *gin.Context) cart.Session {
	sess := cart.Session{Local: readLocalCart(c)}
	if v, ok := c.Get("user_id"); ok {
		sess.UserID, _ = v.(string)
	}
	if v, ok := c.Get("guest_token"); ok {
		sess.GuestToken, _ = v.(string)
	}
	return sess
}

func readLocalCart(c *gin.Context) *cart.LocalCart {
	local := &cart.LocalCart{}
	raw, err := c.Cookie(localCartCookie)
	if err != nil || raw == "" {
		return local
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return local
	}
	// A corrupt cookie degrades to an empty cart rather than an error.
	_ = json.Unmarshal(data, local)
	return local
}

func writeLocalCart(c *gin.Context, local *cart.LocalCart) {
	if local == nil {
		return
	}
	data, err := json.Marshal(local)
	if err != nil {
		return
	}
	c.SetCookie(localCartCookie, base64.RawURLEncoding.EncodeToString(data),
		localCartMaxAge, "/", "", false, true)
}

// GET /cart
func GetCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFrom(c)
		items, err := store.GetCart(sess)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// POST /cart
func AddToCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input AddToCartInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		sess := sessionFrom(c)
		var variation *cart.Variation
		if input.VariationID != "" {
			variation = &cart.Variation{
				VariationID: input.VariationID,
				SizeName:    input.SizeName,
				FrameName:   input.FrameName,
			}
		}

		notification, err := store.AddToCart(sess, input.ProductID, input.Quantity, variation)
		writeLocalCart(c, sess.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"notification": notification})
			return
		}

		items, _ := store.GetCart(sess)
		c.JSON(http.StatusOK, gin.H{"notification": notification, "items": items})
	}
}

// PUT /cart/items/:item_id
func UpdateQuantity(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item_id"})
			return
		}
		var input UpdateQuantityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		sess := sessionFrom(c)
		notification, err := store.UpdateQuantity(sess, uint(itemID), *input.Quantity)
		writeLocalCart(c, sess.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"notification": notification})
			return
		}

		items, _ := store.GetCart(sess)
		c.JSON(http.StatusOK, gin.H{"notification": notification, "items": items})
	}
}

// DELETE /cart/items/:item_id
func RemoveFromCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item_id"})
			return
		}

		sess := sessionFrom(c)
		notification, err := store.RemoveFromCart(sess, uint(itemID))
		writeLocalCart(c, sess.Local)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"notification": notification})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notification": notification})
	}
}

// DELETE /cart
func ClearCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFrom(c)
		notification, err := store.ClearCart(sess)
		writeLocalCart(c, sess.Local)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"notification": notification})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notification": notification})
	}
}

// POST /cart/sync
//
// Called right after login: merges the device's guest cart (server rows or
// the posted local snapshot) into the authenticated user's cart and discards
// the guest identity.
func SyncAfterLogin(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var input struct {
			GuestToken string          `json:"guest_token"`
			Local      *cart.LocalCart `json:"local_cart"`
		}
		// Body is optional; the cookie snapshot covers clients that send none.
		_ = c.ShouldBindJSON(&input)

		sess := sessionFrom(c)
		sess.UserID = "" // merge source is the guest identity, not the user
		if input.GuestToken != "" {
			sess.GuestToken = input.GuestToken
		}
		if input.Local != nil {
			sess.Local = input.Local
		}

		if err := store.ConvertGuestToUser(userID, sess); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync cart"})
			return
		}

		// The device snapshot is spent once merged.
		writeLocalCart(c, &cart.LocalCart{})

		items, err := store.GetCart(cart.Session{UserID: userID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}
