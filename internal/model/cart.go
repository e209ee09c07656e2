package model

import "time"

// Cart is the per-user basket.  Every user owns exactly one.
type Cart struct {
	ID        uint64
	UserID    uint64
	CreatedAt time.Time
	Items     []CartItem
}

// CartItem is one product line in a cart.  Product is populated when
// the item is loaded together with the catalog row.
type CartItem struct {
	ID        uint64
	CartID    uint64
	ProductID uint64
	Quantity  int
	CreatedAt time.Time
	Product   *Product
}
