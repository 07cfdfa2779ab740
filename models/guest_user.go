package models

import "time"

// GuestUser tracks a device before login. A device is anonymous until a
// token exists, identified once an email/address is captured, and the row is
// deleted when the guest converts to a registered user.
type GuestUser struct {
	Token     string    `gorm:"primaryKey" json:"guest_token"`
	Email     string    `json:"email"`
	Address   Address   `gorm:"embedded" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
