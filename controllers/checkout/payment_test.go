package checkoutControllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

const webhookSecret = "whsec_test_secret"

func webhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Category{},
		&models.Coupon{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

func intp(n int) *int { return &n }

func seedPendingOrder(t *testing.T, db *gorm.DB, ref string, productID uint, qty int) models.Order {
	t.Helper()
	order := models.Order{
		OrderRef:      ref,
		CustomerEmail: "buyer@example.com",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Items:         []models.OrderItem{{ProductID: productID, Quantity: qty}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func completedSessionPayload(orderRef string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"checkout.session.completed","api_version":%q,"data":{"object":{"id":"cs_test_1","client_reference_id":%q}}}`,
		stripe.APIVersion, orderRef,
	))
}

func signPayload(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(d Deps, payload []byte, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/checkout/webhook", Webhook(d))

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_ConfirmsOrderAndDeductsStock(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)
	db := webhookTestDB(t)
	product := models.Product{Name: "mirror", SKU: "mirror", Price: 100, Stock: intp(5)}
	require.NoError(t, db.Create(&product).Error)
	order := seedPendingOrder(t, db, "ref-paid", product.ID, 2)

	payload := completedSessionPayload(order.OrderRef)
	w := postWebhook(Deps{DB: db}, payload, signPayload(payload, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)
	require.Equal(t, models.OrderStatusConfirmed, reloaded.Status)
	require.Equal(t, "cs_test_1", reloaded.PaymentRef)

	var reloadedProduct models.Product
	require.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	require.Equal(t, 3, *reloadedProduct.Stock)

	// Webhook retries are idempotent: no double deduction.
	w = postWebhook(Deps{DB: db}, payload, signPayload(payload, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	require.Equal(t, 3, *reloadedProduct.Stock)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)
	db := webhookTestDB(t)
	product := models.Product{Name: "mirror", SKU: "mirror", Price: 100, Stock: intp(5)}
	require.NoError(t, db.Create(&product).Error)
	order := seedPendingOrder(t, db, "ref-forged", product.ID, 1)

	payload := completedSessionPayload(order.OrderRef)

	// No signature header at all.
	w := postWebhook(Deps{DB: db}, payload, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Signed with the wrong key.
	mac := hmac.New(sha256.New, []byte("whsec_other"))
	ts := time.Now()
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	forged := fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
	w = postWebhook(Deps{DB: db}, payload, forged)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	require.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestWebhook_IgnoresOtherEventTypes(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)
	db := webhookTestDB(t)
	order := seedPendingOrder(t, db, "ref-other", 1, 1)

	payload := []byte(fmt.Sprintf(
		`{"type":"payment_intent.created","api_version":%q,"data":{"object":{"id":"pi_1"}}}`,
		stripe.APIVersion,
	))
	w := postWebhook(Deps{DB: db}, payload, signPayload(payload, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	require.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestWebhook_UnconfiguredSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	w := postWebhook(Deps{DB: webhookTestDB(t)}, []byte(`{}`), "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
