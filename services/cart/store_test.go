package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/services/stock"
)

func testStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Category{},
		&models.Cart{}, &models.CartItem{},
		&models.GuestUser{}, &models.GuestCart{}, &models.GuestCartItem{},
	))
	caps := ResolveCapabilities(db)
	require.True(t, caps.UserCarts)
	require.True(t, caps.GuestCarts)
	return NewStore(db, stock.NewValidator(db), caps, nil), db
}

func intp(n int) *int { return &n }

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stk *int) models.Product {
	t.Helper()
	p := models.Product{Name: name, SKU: name, Price: price, Stock: stk}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestResolveActiveTier(t *testing.T) {
	all := Capabilities{UserCarts: true, GuestCarts: true}
	tests := []struct {
		name string
		sess Session
		caps Capabilities
		want Tier
	}{
		{"user wins over guest", Session{UserID: "u1", GuestToken: "g1"}, all, TierUser},
		{"guest without user", Session{GuestToken: "g1"}, all, TierGuest},
		{"anonymous", Session{}, all, TierLocal},
		{"user tier unprovisioned falls to guest", Session{UserID: "u1", GuestToken: "g1"}, Capabilities{GuestCarts: true}, TierGuest},
		{"no server tiers falls to local", Session{UserID: "u1", GuestToken: "g1"}, Capabilities{}, TierLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveActiveTier(tt.sess, tt.caps))
		})
	}
}

func TestAddToCart_MergesQuantities(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "wall-mirror", 49.99, intp(10))
	sess := Session{UserID: "u1"}

	n, err := store.AddToCart(sess, p.ID, 1, nil)
	require.NoError(t, err)
	require.Equal(t, LevelSuccess, n.Level)

	_, err = store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Len(t, items, 1, "same product must merge, not duplicate")
	require.Equal(t, 3, items[0].Quantity)
}

func TestAddToCart_VariationsAreSeparateLines(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "framed-mirror", 89.00, nil)
	sess := Session{UserID: "u1"}

	_, err := store.AddToCart(sess, p.ID, 1, &Variation{VariationID: "v-gold", FrameName: "Gold"})
	require.NoError(t, err)
	_, err = store.AddToCart(sess, p.ID, 1, &Variation{VariationID: "v-black", FrameName: "Black"})
	require.NoError(t, err)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestAddToCart_OutOfStock(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "sold-out", 20, intp(0))
	sess := Session{UserID: "u1"}

	n, err := store.AddToCart(sess, p.ID, 1, nil)
	require.Error(t, err)
	require.Equal(t, LevelError, n.Level)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Empty(t, items, "failed validation must leave the cart unchanged")
}

func TestAddToCart_ClampsToStock(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "scarce", 20, intp(5))
	sess := Session{UserID: "u1"}

	_, err := store.AddToCart(sess, p.ID, 3, nil)
	require.NoError(t, err)

	n, err := store.AddToCart(sess, p.ID, 4, nil)
	require.NoError(t, err)
	require.Equal(t, LevelWarning, n.Level)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Equal(t, 5, items[0].Quantity, "quantity is clamped to available stock")

	// Everything available is already held; another add changes nothing.
	n, err = store.AddToCart(sess, p.ID, 1, nil)
	require.NoError(t, err)
	require.Equal(t, LevelWarning, n.Level)
	items, _ = store.GetCart(sess)
	require.Equal(t, 5, items[0].Quantity)
}

func TestAddToCart_MadeToOrderNeverBlocks(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "custom", 120, nil)
	sess := Session{UserID: "u1"}

	n, err := store.AddToCart(sess, p.ID, 500, nil)
	require.NoError(t, err)
	require.Equal(t, LevelSuccess, n.Level)
}

func TestGetCart_Idempotent(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)

	first, err := store.GetCart(sess)
	require.NoError(t, err)
	second, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetCart_RefreshesSnapshotPrice(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "repriced", 30, intp(10))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 1, nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(&p).Update("price", 35.0).Error)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Equal(t, 35.0, items[0].ProductPrice)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)
	items, _ := store.GetCart(sess)
	require.Len(t, items, 1)

	n, err := store.UpdateQuantity(sess, items[0].ID, 0)
	require.NoError(t, err)
	require.Equal(t, "cart.remove", n.Event)

	items, err = store.GetCart(sess)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUpdateQuantity_IncreaseClamps(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "scarce", 30, intp(4))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)
	items, _ := store.GetCart(sess)

	n, err := store.UpdateQuantity(sess, items[0].ID, 9)
	require.NoError(t, err)
	require.Equal(t, LevelWarning, n.Level)

	items, _ = store.GetCart(sess)
	require.Equal(t, 4, items[0].Quantity)
}

func TestUpdateQuantity_DecreaseSkipsStockCheck(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "shrinking", 30, intp(10))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 5, nil)
	require.NoError(t, err)
	items, _ := store.GetCart(sess)

	// Stock dropping below the held quantity must not block a decrease.
	require.NoError(t, db.Model(&p).Update("stock", 0).Error)

	n, err := store.UpdateQuantity(sess, items[0].ID, 2)
	require.NoError(t, err)
	require.Equal(t, LevelSuccess, n.Level)
	items, _ = store.GetCart(sess)
	require.Equal(t, 2, items[0].Quantity)
}

func TestRemoveFromCart_MissingItem(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	sess := Session{UserID: "u1"}
	_, err := store.AddToCart(sess, p.ID, 1, nil)
	require.NoError(t, err)

	n, err := store.RemoveFromCart(sess, 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Equal(t, LevelError, n.Level)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Len(t, items, 1, "existing lines are untouched")

	// Same contract on the device-local tier.
	n, err = store.RemoveFromCart(Session{Local: &LocalCart{}}, 5)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Equal(t, LevelError, n.Level)
}

func TestClearCart_EmptiesServerAndLocal(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	local := &LocalCart{Items: []models.CartItem{{ID: 1, ProductID: p.ID, Quantity: 2}}}
	sess := Session{UserID: "u1", Local: local}
	_, err := store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)

	_, err = store.ClearCart(sess)
	require.NoError(t, err)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Empty(t, local.Items, "device snapshot is cleared too")
}

func TestLocalTier_AddUpdateRemove(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	local := &LocalCart{}
	sess := Session{Local: local}

	_, err := store.AddToCart(sess, p.ID, 1, nil)
	require.NoError(t, err)
	_, err = store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, local.Items, 1)
	require.Equal(t, 3, local.Items[0].Quantity)

	_, err = store.UpdateQuantity(sess, local.Items[0].ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, local.Items[0].Quantity)

	_, err = store.RemoveFromCart(sess, local.Items[0].ID)
	require.NoError(t, err)
	require.Empty(t, local.Items)
}

func TestGuestTier_PersistsRows(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	sess := Session{GuestToken: "guest-token-1"}

	_, err := store.AddToCart(sess, p.ID, 2, nil)
	require.NoError(t, err)

	items, err := store.GetCart(sess)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)

	// The guest user row is created lazily on the first cart event.
	var guest models.GuestUser
	require.NoError(t, db.First(&guest, "token = ?", "guest-token-1").Error)
}

func TestConvertGuestToUser(t *testing.T) {
	store, db := testStore(t)
	p1 := seedProduct(t, db, "mirror-a", 30, intp(10))
	p2 := seedProduct(t, db, "mirror-b", 40, intp(10))

	guestSess := Session{GuestToken: "guest-token-2"}
	_, err := store.AddToCart(guestSess, p1.ID, 2, nil)
	require.NoError(t, err)
	_, err = store.AddToCart(guestSess, p2.ID, 1, nil)
	require.NoError(t, err)

	// The user already holds one unit of p1; the merge sums them.
	userSess := Session{UserID: "u1"}
	_, err = store.AddToCart(userSess, p1.ID, 1, nil)
	require.NoError(t, err)

	require.NoError(t, store.ConvertGuestToUser("u1", guestSess))

	items, err := store.GetCart(userSess)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byProduct := map[uint]int{}
	for _, it := range items {
		byProduct[it.ProductID] = it.Quantity
	}
	require.Equal(t, 3, byProduct[p1.ID])
	require.Equal(t, 1, byProduct[p2.ID])

	// Guest records are gone.
	var count int64
	db.Model(&models.GuestCart{}).Where("guest_token = ?", "guest-token-2").Count(&count)
	require.Zero(t, count)
	db.Model(&models.GuestUser{}).Where("token = ?", "guest-token-2").Count(&count)
	require.Zero(t, count)
}

func TestConvertGuestToUser_FromLocalSnapshot(t *testing.T) {
	store, db := testStore(t)
	p := seedProduct(t, db, "mirror", 30, intp(10))
	local := &LocalCart{Items: []models.CartItem{{ID: 1, ProductID: p.ID, Quantity: 2}}}

	require.NoError(t, store.ConvertGuestToUser("u2", Session{Local: local}))

	items, err := store.GetCart(Session{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
	require.Empty(t, local.Items)
}
