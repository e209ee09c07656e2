package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/jikgumate/internal/model"
)

// OrderRepo provides persistence for orders, their line items and the
// shipping snapshot.  Writes that must be atomic are exposed as *Tx methods;
// the caller owns the transaction.  All timestamps are stored in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts the order header and populates o.ID.  TotalAmount is
// written with two fractional digits.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (user_id, total_amount, status, order_date) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.UserID, o.TotalAmount.StringFixed(2), string(o.Status), o.OrderDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateItemsBulkTx inserts all line items in a single statement.  Each
// item must carry its OrderID.  Passing an empty slice has no effect.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price, option_detail) VALUES `
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice.StringFixed(2), strOrNil(it.OptionDetail))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// CreateShippingTx inserts the shipping snapshot for s.OrderID.
func (r *OrderRepo) CreateShippingTx(ctx context.Context, tx *sql.Tx, s *model.ShippingSnapshot) error {
	const q = `INSERT INTO shipping_info (order_id, recipient_name, recipient_phone, recipient_address,
                   pccc_number, shipping_company, tracking_number)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.OrderID, s.RecipientName, s.RecipientPhone, s.RecipientAddress,
		strOrNil(s.PCCCNumber), strOrNil(s.ShippingCompany), strOrNil(s.TrackingNumber))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

const orderColumns = `id, user_id, total_amount, status, order_date`

// GetByID returns the order expanded with its items (each with product)
// and shipping snapshot.  sql.ErrNoRows when absent.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	var o model.Order
	var status string
	err := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id).
		Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.OrderDate)
	if err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	orders := []model.Order{o}
	if err := r.expand(ctx, orders); err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

// ListByUser returns the user's orders newest first, expanded.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY order_date DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.OrderDate); err != nil {
			rows.Close()
			return nil, err
		}
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}
	// close before expanding so a single-connection pool can serve the next query
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.expand(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// expand loads items and shipping for orders in two queries.
func (r *OrderRepo) expand(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(orders))
	args := make([]any, 0, len(orders))
	for i, o := range orders {
		idx[o.ID] = i
		args = append(args, o.ID)
		orders[i].Items = []model.LineItem{}
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?,", len(orders)), ",") + ")"

	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.option_detail,
                p.id, p.name_ko, p.name_en, p.category, p.price_usd, p.image_url, p.original_url, p.created_at
           FROM order_items oi
           JOIN products p ON p.id = oi.product_id
          WHERE oi.order_id IN `+in+`
          ORDER BY oi.id`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var it model.LineItem
		var p model.Product
		var opt, nameEn, category, img, orig sql.NullString
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &opt,
			&p.ID, &p.NameKo, &nameEn, &category, &p.PriceUSD, &img, &orig, &p.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		it.OptionDetail = nullStr(opt)
		p.NameEn, p.Category, p.ImageURL, p.OriginalURL = nullStr(nameEn), nullStr(category), nullStr(img), nullStr(orig)
		it.Product = &p
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	srows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, recipient_name, recipient_phone, recipient_address, pccc_number, shipping_company, tracking_number
           FROM shipping_info WHERE order_id IN `+in, args...)
	if err != nil {
		return err
	}
	defer srows.Close()
	for srows.Next() {
		var s model.ShippingSnapshot
		var pccc, company, tracking sql.NullString
		if err := srows.Scan(&s.ID, &s.OrderID, &s.RecipientName, &s.RecipientPhone, &s.RecipientAddress,
			&pccc, &company, &tracking); err != nil {
			return err
		}
		s.PCCCNumber, s.ShippingCompany, s.TrackingNumber = nullStr(pccc), nullStr(company), nullStr(tracking)
		orders[idx[s.OrderID]].Shipping = &s
	}
	return srows.Err()
}

// UpdateStatus writes a new status.  sql.ErrNoRows when the order is absent.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ?", string(status), id)
	return affectedOne(res, err)
}

// UpdateShipping sets the carrier and tracking number on an order's
// shipping snapshot.  Nil arguments are left untouched; at least one must be
// set.  sql.ErrNoRows when the order has no snapshot.
func (r *OrderRepo) UpdateShipping(ctx context.Context, orderID uint64, company, tracking *string) error {
	var sets []string
	var args []any
	if company != nil {
		sets = append(sets, "shipping_company = ?")
		args = append(args, *company)
	}
	if tracking != nil {
		sets = append(sets, "tracking_number = ?")
		args = append(args, *tracking)
	}
	if len(sets) == 0 {
		return errors.New("no shipping fields to update")
	}
	args = append(args, orderID)
	res, err := r.db.ExecContext(ctx, "UPDATE shipping_info SET "+strings.Join(sets, ", ")+" WHERE order_id = ?", args...)
	return affectedOne(res, err)
}

// DeleteTx removes the shipping snapshot, the line items and the order
// itself, in that order.  sql.ErrNoRows when the order is absent.
func (r *OrderRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM shipping_info WHERE order_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	return affectedOne(res, err)
}
