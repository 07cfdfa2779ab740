package stock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Category{}))
	return db
}

func intp(n int) *int { return &n }

func seedProduct(t *testing.T, db *gorm.DB, name string, stock *int) models.Product {
	t.Helper()
	p := models.Product{Name: name, SKU: name, Price: 100, Stock: stock}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestCheckProductStock_Counted(t *testing.T) {
	db := testDB(t)
	v := NewValidator(db)
	p := seedProduct(t, db, "wall-mirror", intp(5))

	res := v.CheckProductStock(p.ID, 3)
	require.True(t, res.HasStock)
	require.Equal(t, 5, res.AvailableStock)

	res = v.CheckProductStock(p.ID, 6)
	require.False(t, res.HasStock)
	require.Equal(t, 5, res.AvailableStock)
	require.Contains(t, res.Message, "Only 5")
}

func TestCheckProductStock_MadeToOrder(t *testing.T) {
	db := testDB(t)
	v := NewValidator(db)
	p := seedProduct(t, db, "custom-mirror", nil)

	res := v.CheckProductStock(p.ID, 10000)
	require.True(t, res.HasStock)
	require.Equal(t, MadeToOrderStock, res.AvailableStock)
}

func TestCheckProductStock_MissingProduct(t *testing.T) {
	db := testDB(t)
	v := NewValidator(db)

	res := v.CheckProductStock(9999, 1)
	require.False(t, res.HasStock)
	require.Equal(t, 0, res.AvailableStock)
}

func TestCheckCartItemStock_ClampsToAvailable(t *testing.T) {
	db := testDB(t)
	v := NewValidator(db)
	p := seedProduct(t, db, "round-mirror", intp(5))

	// 3 already in the cart, adding 4 more: only 5 total may be held.
	res := v.CheckCartItemStock(p.ID, 3, 4)
	require.False(t, res.HasStock)
	require.Equal(t, 5, res.AllowedQuantity)

	// Within stock the full combined quantity is allowed.
	res = v.CheckCartItemStock(p.ID, 1, 2)
	require.True(t, res.HasStock)
	require.Equal(t, 3, res.AllowedQuantity)
}

func TestValidateCart(t *testing.T) {
	db := testDB(t)
	v := NewValidator(db)
	counted := seedProduct(t, db, "counted", intp(2))
	madeToOrder := seedProduct(t, db, "made-to-order", nil)

	validation, err := v.ValidateCart([]models.CartItem{
		{ProductID: counted.ID, ProductName: "counted", Quantity: 2},
		{ProductID: madeToOrder.ID, ProductName: "made-to-order", Quantity: 500},
	})
	require.NoError(t, err)
	require.True(t, validation.IsValid)
	require.Empty(t, validation.InvalidItems)

	validation, err = v.ValidateCart([]models.CartItem{
		{ProductID: counted.ID, ProductName: "counted", Quantity: 3},
		{ProductID: 9999, ProductName: "vanished", Quantity: 1},
	})
	require.NoError(t, err)
	require.False(t, validation.IsValid)
	require.Len(t, validation.InvalidItems, 2)
	require.Equal(t, 2, validation.InvalidItems[0].AvailableStock)
	require.Equal(t, 0, validation.InvalidItems[1].AvailableStock)
}

func TestValidateCart_EmptyCart(t *testing.T) {
	v := NewValidator(testDB(t))
	validation, err := v.ValidateCart(nil)
	require.NoError(t, err)
	require.True(t, validation.IsValid)
}
