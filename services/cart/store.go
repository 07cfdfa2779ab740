// Package cart holds the central cart orchestrator: line items merged across
// the authenticated, guest-token and device-local persistence tiers, with
// stock validation before every committed change.
package cart

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/services/stock"
)

// Notification levels. Every mutating operation produces one of these for
// the user; this is part of the contract, not incidental UI.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Notification struct {
	Event   string `json:"event"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Broadcaster pushes notifications to connected clients. Satisfied by
// notify.Hub; may be nil in tests.
type Broadcaster interface {
	Broadcast(v any)
}

// Variation selects a size/frame combination of a product.
type Variation struct {
	VariationID string `json:"variation_id"`
	SizeName    string `json:"size_name"`
	FrameName   string `json:"frame_name"`
}

type Store struct {
	db       *gorm.DB
	stock    *stock.Validator
	caps     Capabilities
	notifier Broadcaster
}

func NewStore(db *gorm.DB, validator *stock.Validator, caps Capabilities, notifier Broadcaster) *Store {
	return &Store{db: db, stock: validator, caps: caps, notifier: notifier}
}

func (s *Store) notify(n Notification) Notification {
	if s.notifier != nil {
		s.notifier.Broadcast(n)
	}
	return n
}

// GetCart resolves the active tier and returns its lines, joined with live
// product data. Reading never mutates, so two consecutive calls return
// identical results.
func (s *Store) GetCart(sess Session) ([]models.CartItem, error) {
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		var cart models.Cart
		err := s.db.Preload("Items").Where("user_id = ?", sess.UserID).First(&cart).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []models.CartItem{}, nil
			}
			return nil, fmt.Errorf("fetch user cart: %w", err)
		}
		return s.refreshSnapshots(cart.Items), nil

	case TierGuest:
		var cart models.GuestCart
		err := s.db.Preload("Items").Where("guest_token = ?", sess.GuestToken).First(&cart).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []models.CartItem{}, nil
			}
			return nil, fmt.Errorf("fetch guest cart: %w", err)
		}
		items := make([]models.CartItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			items = append(items, it.AsCartItem())
		}
		return s.refreshSnapshots(items), nil

	default:
		if sess.Local == nil || len(sess.Local.Items) == 0 {
			return []models.CartItem{}, nil
		}
		return s.refreshSnapshots(sess.Local.Items), nil
	}
}

// AddToCart validates stock for the combined quantity and merges the line
// with any existing one sharing the same identity key, summing quantities
// rather than duplicating.
func (s *Store) AddToCart(sess Session, productID uint, quantity int, variation *Variation) (Notification, error) {
	if quantity < 1 {
		return s.notify(Notification{Event: "cart.add", Level: LevelError, Message: "Quantity must be at least 1"}),
			errors.New("quantity must be at least 1")
	}

	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.notify(Notification{Event: "cart.add", Level: LevelError, Message: "Product not found"}),
				fmt.Errorf("product %d not found", productID)
		}
		return s.notify(Notification{Event: "cart.add", Level: LevelError, Message: "Could not add to cart, please try again"}),
			fmt.Errorf("fetch product: %w", err)
	}

	line := snapshotLine(product, quantity, variation)
	current := s.currentQuantity(sess, line.IdentityKey())

	check := s.stock.CheckCartItemStock(productID, current, quantity)
	if !check.HasStock && check.AvailableStock == 0 {
		msg := check.Message
		if msg == "" {
			msg = fmt.Sprintf("%s is out of stock", product.Name)
		}
		return s.notify(Notification{Event: "cart.add", Level: LevelError, Message: msg}),
			errors.New("insufficient stock")
	}

	addQty := quantity
	clamped := false
	if check.AllowedQuantity < current+quantity {
		addQty = check.AllowedQuantity - current
		clamped = true
		if addQty <= 0 {
			return s.notify(Notification{
				Event:   "cart.add",
				Level:   LevelWarning,
				Message: fmt.Sprintf("You already have all %d available units of %s in your cart", check.AvailableStock, product.Name),
			}), nil
		}
	}
	line.Quantity = addQty

	if err := s.persistAdd(sess, line); err != nil {
		return s.notify(Notification{Event: "cart.add", Level: LevelError, Message: "Could not add to cart, please try again"}),
			err
	}

	if clamped {
		return s.notify(Notification{
			Event:   "cart.add",
			Level:   LevelWarning,
			Message: fmt.Sprintf("Only %d of %s available, quantity was adjusted", check.AvailableStock, product.Name),
		}), nil
	}
	return s.notify(Notification{
		Event:   "cart.add",
		Level:   LevelSuccess,
		Message: fmt.Sprintf("%s added to cart", product.Name),
	}), nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line; increases
// re-validate stock and clamp with a notice; decreases skip validation,
// since they can never violate stock limits.
func (s *Store) UpdateQuantity(sess Session, itemID uint, quantity int) (Notification, error) {
	if quantity == 0 {
		return s.RemoveFromCart(sess, itemID)
	}
	if quantity < 0 {
		return s.notify(Notification{Event: "cart.update", Level: LevelError, Message: "Quantity cannot be negative"}),
			errors.New("negative quantity")
	}

	item, err := s.findItem(sess, itemID)
	if err != nil {
		return s.notify(Notification{Event: "cart.update", Level: LevelError, Message: "Cart item not found"}), err
	}

	target := quantity
	clamped := false
	if quantity > item.Quantity {
		check := s.stock.CheckCartItemStock(item.ProductID, 0, quantity)
		if check.AllowedQuantity < 1 {
			msg := check.Message
			if msg == "" {
				msg = fmt.Sprintf("%s is out of stock", item.ProductName)
			}
			return s.notify(Notification{Event: "cart.update", Level: LevelError, Message: msg}),
				errors.New("insufficient stock")
		}
		if check.AllowedQuantity < quantity {
			target = check.AllowedQuantity
			clamped = true
		}
	}

	if err := s.persistQuantity(sess, itemID, target); err != nil {
		return s.notify(Notification{Event: "cart.update", Level: LevelError, Message: "Could not update cart, please try again"}), err
	}

	if clamped {
		return s.notify(Notification{
			Event:   "cart.update",
			Level:   LevelWarning,
			Message: fmt.Sprintf("Only %d of %s available, quantity was adjusted", target, item.ProductName),
		}), nil
	}
	return s.notify(Notification{Event: "cart.update", Level: LevelSuccess, Message: "Cart updated"}), nil
}

// RemoveFromCart deletes a line from the active tier. The device-local
// snapshot is always pruned too, as a safety net.
func (s *Store) RemoveFromCart(sess Session, itemID uint) (Notification, error) {
	var err error
	removed := false
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		res := s.db.Where("id = ? AND cart_id IN (?)",
			itemID, s.db.Model(&models.Cart{}).Select("cart_id").Where("user_id = ?", sess.UserID),
		).Delete(&models.CartItem{})
		err = res.Error
		removed = res.RowsAffected > 0
	case TierGuest:
		res := s.db.Where("id = ? AND cart_id IN (?)",
			itemID, s.db.Model(&models.GuestCart{}).Select("cart_id").Where("guest_token = ?", sess.GuestToken),
		).Delete(&models.GuestCartItem{})
		err = res.Error
		removed = res.RowsAffected > 0
	}
	if pruneLocal(sess.Local, itemID) {
		removed = true
	}
	if err != nil {
		return s.notify(Notification{Event: "cart.remove", Level: LevelError, Message: "Could not remove item, please try again"}),
			fmt.Errorf("remove cart item: %w", err)
	}
	if !removed {
		return s.notify(Notification{Event: "cart.remove", Level: LevelError, Message: "Cart item not found"}),
			gorm.ErrRecordNotFound
	}
	return s.notify(Notification{Event: "cart.remove", Level: LevelInfo, Message: "Item removed from cart"}), nil
}

// ClearCart empties the active tier and always clears the local snapshot.
func (s *Store) ClearCart(sess Session) (Notification, error) {
	var err error
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		err = s.db.Where("cart_id IN (?)",
			s.db.Model(&models.Cart{}).Select("cart_id").Where("user_id = ?", sess.UserID),
		).Delete(&models.CartItem{}).Error
	case TierGuest:
		err = s.db.Where("cart_id IN (?)",
			s.db.Model(&models.GuestCart{}).Select("cart_id").Where("guest_token = ?", sess.GuestToken),
		).Delete(&models.GuestCartItem{}).Error
	}
	if sess.Local != nil {
		sess.Local.Items = nil
	}
	if err != nil {
		return s.notify(Notification{Event: "cart.clear", Level: LevelError, Message: "Could not clear cart, please try again"}),
			fmt.Errorf("clear cart: %w", err)
	}
	return s.notify(Notification{Event: "cart.clear", Level: LevelInfo, Message: "Cart cleared"}), nil
}

// ConvertGuestToUser merges a guest's cart (server-side rows if present,
// else the local snapshot) into the authenticated user's cart line by line
// through the regular add path, then discards the guest records. Called
// after login.
func (s *Store) ConvertGuestToUser(userID string, sess Session) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	source := s.guestItems(sess)
	userSession := Session{UserID: userID}
	for _, it := range source {
		var variation *Variation
		if it.VariationID != "" {
			variation = &Variation{VariationID: it.VariationID, SizeName: it.SizeName, FrameName: it.FrameName}
		}
		if _, err := s.AddToCart(userSession, it.ProductID, it.Quantity, variation); err != nil {
			slog.Warn("skipping cart line during guest conversion",
				"product_id", it.ProductID, "error", err)
		}
	}

	if sess.GuestToken != "" && s.caps.GuestCarts {
		var gc models.GuestCart
		if err := s.db.Where("guest_token = ?", sess.GuestToken).First(&gc).Error; err == nil {
			if err := s.db.Select("Items").Delete(&gc).Error; err != nil {
				return fmt.Errorf("discard guest cart: %w", err)
			}
		}
		if err := s.db.Delete(&models.GuestUser{}, "token = ?", sess.GuestToken).Error; err != nil {
			slog.Warn("could not discard guest user", "error", err)
		}
	}
	if sess.Local != nil {
		sess.Local.Items = nil
	}
	return nil
}

// ---- tier plumbing ----

func snapshotLine(p models.Product, quantity int, v *Variation) models.CartItem {
	line := models.CartItem{
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductImage: p.Image,
		ProductPrice: p.Price,
		Weight:       p.Weight,
		Quantity:     quantity,
		AddedAt:      time.Now(),
	}
	if v != nil {
		line.VariationID = v.VariationID
		line.SizeName = v.SizeName
		line.FrameName = v.FrameName
	}
	return line
}

// currentQuantity reports how many units of the identity key the active
// tier's cart already holds.
func (s *Store) currentQuantity(sess Session, identity string) int {
	items, err := s.GetCart(sess)
	if err != nil {
		return 0
	}
	for _, it := range items {
		if it.IdentityKey() == identity {
			return it.Quantity
		}
	}
	return 0
}

// persistAdd merges the line into the active tier, summing quantities when a
// line with the same identity key exists.
func (s *Store) persistAdd(sess Session, line models.CartItem) error {
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		return s.db.Transaction(func(tx *gorm.DB) error {
			var cart models.Cart
			if err := tx.Where(models.Cart{UserID: sess.UserID}).FirstOrCreate(&cart).Error; err != nil {
				return fmt.Errorf("resolve user cart: %w", err)
			}
			return mergeUserLine(tx, cart.CartID, line)
		})

	case TierGuest:
		return s.db.Transaction(func(tx *gorm.DB) error {
			// A guest user row is created lazily on the first cart event.
			guest := models.GuestUser{Token: sess.GuestToken, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
			if err := tx.Where(models.GuestUser{Token: sess.GuestToken}).FirstOrCreate(&guest).Error; err != nil {
				return fmt.Errorf("resolve guest user: %w", err)
			}
			var cart models.GuestCart
			if err := tx.Where(models.GuestCart{GuestToken: sess.GuestToken}).FirstOrCreate(&cart).Error; err != nil {
				return fmt.Errorf("resolve guest cart: %w", err)
			}
			return mergeGuestLine(tx, cart.CartID, line)
		})

	default:
		if sess.Local == nil {
			return errors.New("no cart tier available")
		}
		for i := range sess.Local.Items {
			if sess.Local.Items[i].IdentityKey() == line.IdentityKey() {
				sess.Local.Items[i].Quantity += line.Quantity
				sess.Local.Items[i].ProductPrice = line.ProductPrice
				return nil
			}
		}
		line.ID = uint(len(sess.Local.Items) + 1)
		sess.Local.Items = append(sess.Local.Items, line)
		return nil
	}
}

func mergeUserLine(tx *gorm.DB, cartID uint, line models.CartItem) error {
	var existing models.CartItem
	err := tx.Where("cart_id = ? AND product_id = ? AND variation_id = ?",
		cartID, line.ProductID, line.VariationID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			line.CartID = cartID
			return tx.Create(&line).Error
		}
		return fmt.Errorf("fetch cart line: %w", err)
	}
	existing.Quantity += line.Quantity
	existing.ProductPrice = line.ProductPrice
	existing.AddedAt = time.Now()
	return tx.Save(&existing).Error
}

func mergeGuestLine(tx *gorm.DB, cartID uint, line models.CartItem) error {
	var existing models.GuestCartItem
	err := tx.Where("cart_id = ? AND product_id = ? AND variation_id = ?",
		cartID, line.ProductID, line.VariationID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item := models.GuestCartItem{
				CartID:       cartID,
				ProductID:    line.ProductID,
				VariationID:  line.VariationID,
				SizeName:     line.SizeName,
				FrameName:    line.FrameName,
				ProductName:  line.ProductName,
				ProductImage: line.ProductImage,
				ProductPrice: line.ProductPrice,
				Weight:       line.Weight,
				Quantity:     line.Quantity,
				AddedAt:      time.Now(),
			}
			return tx.Create(&item).Error
		}
		return fmt.Errorf("fetch guest cart line: %w", err)
	}
	existing.Quantity += line.Quantity
	existing.ProductPrice = line.ProductPrice
	existing.AddedAt = time.Now()
	return tx.Save(&existing).Error
}

func (s *Store) findItem(sess Session, itemID uint) (models.CartItem, error) {
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		var item models.CartItem
		err := s.db.Where("id = ? AND cart_id IN (?)",
			itemID, s.db.Model(&models.Cart{}).Select("cart_id").Where("user_id = ?", sess.UserID),
		).First(&item).Error
		return item, err
	case TierGuest:
		var item models.GuestCartItem
		err := s.db.Where("id = ? AND cart_id IN (?)",
			itemID, s.db.Model(&models.GuestCart{}).Select("cart_id").Where("guest_token = ?", sess.GuestToken),
		).First(&item).Error
		return item.AsCartItem(), err
	default:
		if sess.Local != nil {
			for _, it := range sess.Local.Items {
				if it.ID == itemID {
					return it, nil
				}
			}
		}
		return models.CartItem{}, gorm.ErrRecordNotFound
	}
}

func (s *Store) persistQuantity(sess Session, itemID uint, quantity int) error {
	switch ResolveActiveTier(sess, s.caps) {
	case TierUser:
		return s.db.Model(&models.CartItem{}).Where("id = ?", itemID).
			Updates(map[string]any{"quantity": quantity, "added_at": time.Now()}).Error
	case TierGuest:
		return s.db.Model(&models.GuestCartItem{}).Where("id = ?", itemID).
			Updates(map[string]any{"quantity": quantity, "added_at": time.Now()}).Error
	default:
		if sess.Local == nil {
			return gorm.ErrRecordNotFound
		}
		for i := range sess.Local.Items {
			if sess.Local.Items[i].ID == itemID {
				sess.Local.Items[i].Quantity = quantity
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	}
}

// pruneLocal drops the line from the device snapshot and reports whether it
// was present.
func pruneLocal(local *LocalCart, itemID uint) bool {
	if local == nil {
		return false
	}
	kept := local.Items[:0]
	removed := false
	for _, it := range local.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		} else {
			removed = true
		}
	}
	local.Items = kept
	return removed
}

// guestItems returns the cart to merge at conversion: server-side guest rows
// when present, else the local snapshot.
func (s *Store) guestItems(sess Session) []models.CartItem {
	if sess.GuestToken != "" && s.caps.GuestCarts {
		var gc models.GuestCart
		if err := s.db.Preload("Items").Where("guest_token = ?", sess.GuestToken).First(&gc).Error; err == nil && len(gc.Items) > 0 {
			items := make([]models.CartItem, 0, len(gc.Items))
			for _, it := range gc.Items {
				items = append(items, it.AsCartItem())
			}
			return items
		}
	}
	if sess.Local != nil {
		return sess.Local.Items
	}
	return nil
}

// refreshSnapshots joins lines with live product data in one batched lookup.
// Lines whose product has vanished are kept with their stored snapshot.
func (s *Store) refreshSnapshots(items []models.CartItem) []models.CartItem {
	if len(items) == 0 {
		return []models.CartItem{}
	}
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		slog.Warn("could not refresh cart snapshots", "error", err)
		return items
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]models.CartItem, len(items))
	copy(out, items)
	for i := range out {
		if p, ok := byID[out[i].ProductID]; ok {
			out[i].ProductName = p.Name
			out[i].ProductImage = p.Image
			out[i].ProductPrice = p.Price
		}
	}
	return out
}
