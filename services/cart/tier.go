package cart

import (
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// Tier identifies which persistence layer a cart operation works against.
type Tier int

const (
	TierLocal Tier = iota // device-held snapshot carried on the request
	TierGuest             // guest-token rows in the database
	TierUser              // authenticated user's rows in the database
)

func (t Tier) String() string {
	switch t {
	case TierUser:
		return "user"
	case TierGuest:
		return "guest"
	default:
		return "local"
	}
}

// LocalCart is the device-local cart snapshot (the two local-storage keys on
// the client: cart items plus guest token). The transport layer carries it in
// on each request and writes it back after mutations.
type LocalCart struct {
	Items []models.CartItem `json:"items"`
}

// Session identifies the caller for one cart operation.
type Session struct {
	UserID     string
	GuestToken string
	Local      *LocalCart
}

// Capabilities flags which server-side cart tiers are provisioned. They are
// resolved once at startup, replacing per-query probing for missing tables.
type Capabilities struct {
	UserCarts  bool
	GuestCarts bool
}

// ResolveCapabilities inspects the schema once.
func ResolveCapabilities(db *gorm.DB) Capabilities {
	m := db.Migrator()
	return Capabilities{
		UserCarts:  m.HasTable(&models.Cart{}) && m.HasTable(&models.CartItem{}),
		GuestCarts: m.HasTable(&models.GuestCart{}) && m.HasTable(&models.GuestCartItem{}),
	}
}

// ResolveActiveTier picks the tier for a session in priority order:
// authenticated user, then guest token, then the device-local snapshot.
// A tier whose tables are not provisioned falls through silently.
func ResolveActiveTier(s Session, caps Capabilities) Tier {
	if s.UserID != "" && caps.UserCarts {
		return TierUser
	}
	if s.GuestToken != "" && caps.GuestCarts {
		return TierGuest
	}
	return TierLocal
}
