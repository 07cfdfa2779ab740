package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartItemIdentityKey(t *testing.T) {
	withVariation := CartItem{ProductID: 7, VariationID: "v-gold"}
	assert.Equal(t, "v-gold", withVariation.IdentityKey())

	withoutVariation := CartItem{ProductID: 7}
	assert.Equal(t, "p:7", withoutVariation.IdentityKey())

	// Lines of the same product with different variations never merge.
	other := CartItem{ProductID: 7, VariationID: "v-black"}
	assert.NotEqual(t, withVariation.IdentityKey(), other.IdentityKey())
}

func TestCartSubtotal(t *testing.T) {
	items := []CartItem{
		{ProductPrice: 49.99, Quantity: 2},
		{ProductPrice: 10.50, Quantity: 3},
	}
	assert.True(t, CartSubtotal(items).Equal(decimal.NewFromFloat(131.48)))
	assert.True(t, CartSubtotal(nil).IsZero())
}
