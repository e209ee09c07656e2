package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/jikgumate/internal/model"
)

// CartRepo stores the per-user cart and its items.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// CreateTx inserts an empty cart for userID.
func (r *CartRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO carts (user_id, created_at) VALUES (?,?)", userID, now)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// GetOrCreate returns the user's cart, creating it on first access.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint64) (model.Cart, error) {
	c, err := r.getByUser(ctx, r.db, userID)
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, "INSERT INTO carts (user_id, created_at) VALUES (?,?)", userID, now)
	if err != nil && !isDuplicateKey(err) {
		return model.Cart{}, err
	}
	// a concurrent request may have created it first; either way it exists now
	return r.getByUser(ctx, r.db, userID)
}

// GetByUserTx returns the user's cart inside tx.
func (r *CartRepo) GetByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.Cart, error) {
	return r.getByUser(ctx, tx, userID)
}

func (r *CartRepo) getByUser(ctx context.Context, q querier, userID uint64) (model.Cart, error) {
	var c model.Cart
	err := q.QueryRowContext(ctx, "SELECT id, user_id, created_at FROM carts WHERE user_id=?", userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	return c, err
}

// ListItems returns the cart's items joined with their products, oldest first.
func (r *CartRepo) ListItems(ctx context.Context, cartID uint64) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at,
		        p.id, p.name_ko, p.name_en, p.category, p.price_usd, p.image_url, p.original_url, p.created_at
		   FROM cart_items ci
		   JOIN products p ON p.id = ci.product_id
		  WHERE ci.cart_id = ?
		  ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		var p model.Product
		var nameEn, category, img, orig sql.NullString
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt,
			&p.ID, &p.NameKo, &nameEn, &category, &p.PriceUSD, &img, &orig, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.NameEn, p.Category, p.ImageURL, p.OriginalURL = nullStr(nameEn), nullStr(category), nullStr(img), nullStr(orig)
		it.Product = &p
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddItemTx inserts productID into the cart or, when it is already present,
// adds qty to the existing line.
func (r *CartRepo) AddItemTx(ctx context.Context, tx *sql.Tx, cartID, productID uint64, qty int, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE cart_items SET quantity = quantity + ? WHERE cart_id=? AND product_id=?", qty, cartID, productID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO cart_items (cart_id, product_id, quantity, created_at) VALUES (?,?,?,?)",
		cartID, productID, qty, now)
	return err
}

// UpdateItemQuantity sets the quantity of an item that belongs to cartID.
// It returns sql.ErrNoRows when no such item exists in that cart.
func (r *CartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID uint64, qty int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity=? WHERE id=? AND cart_id=?", qty, itemID, cartID)
	return affectedOne(res, err)
}

// DeleteItem removes an item that belongs to cartID.
func (r *CartRepo) DeleteItem(ctx context.Context, cartID, itemID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id=? AND cart_id=?", itemID, cartID)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
