package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/repository"
)

// CartService manages the caller's cart.  Item operations are scoped to the
// caller's cart; an item id from another cart is reported as not found.
type CartService struct {
	db       *sql.DB
	carts    *repository.CartRepo
	products *repository.ProductRepo
}

func NewCartService(db *sql.DB) *CartService {
	return &CartService{db: db, carts: repository.NewCartRepo(db), products: repository.NewProductRepo(db)}
}

// GetCart returns the user's cart with items, creating it when missing.
func (s *CartService) GetCart(ctx context.Context, userID uint64) (model.Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	items, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	c.Items = items
	return c, nil
}

// AddItem puts quantity of productID into the cart, merging with an
// existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint64, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return model.Cart{}, apperr.NewValidation("quantity must be at least 1")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Cart{}, apperr.NewNotFound(fmt.Sprintf("product %d not found", productID))
		}
		return model.Cart{}, fmt.Errorf("load product: %w", err)
	}
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Cart{}, fmt.Errorf("begin cart tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.carts.AddItemTx(ctx, tx, c.ID, productID, quantity, time.Now().UTC()); err != nil {
		return model.Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Cart{}, fmt.Errorf("commit cart tx: %w", err)
	}
	committed = true
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of one of the caller's cart items.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint64, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return model.Cart{}, apperr.NewValidation("quantity must be at least 1")
	}
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if err := s.carts.UpdateItemQuantity(ctx, c.ID, itemID, quantity); err != nil {
		return model.Cart{}, itemErr(itemID, err)
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes one of the caller's cart items.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint64) (model.Cart, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if err := s.carts.DeleteItem(ctx, c.ID, itemID); err != nil {
		return model.Cart{}, itemErr(itemID, err)
	}
	return s.GetCart(ctx, userID)
}

func itemErr(itemID uint64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound(fmt.Sprintf("cart item %d not found", itemID))
	}
	return fmt.Errorf("cart item %d: %w", itemID, err)
}
