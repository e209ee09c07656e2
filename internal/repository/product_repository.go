package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/jikgumate/internal/model"
)

// ProductRepo provides catalog access.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, name_ko, name_en, category, price_usd, image_url, original_url, created_at`

// ProductPatch lists the fields an update may change.  Nil fields are left
// untouched.
type ProductPatch struct {
	NameKo      *string
	NameEn      *string
	Category    *string
	PriceUSD    *decimal.Decimal
	ImageURL    *string
	OriginalURL *string
}

// Create inserts p and sets its ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name_ko, name_en, category, price_usd, image_url, original_url, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		p.NameKo, strOrNil(p.NameEn), strOrNil(p.Category), p.PriceUSD.StringFixed(2),
		strOrNil(p.ImageURL), strOrNil(p.OriginalURL), p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns a product or sql.ErrNoRows.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	return getProduct(ctx, r.db, id)
}

// GetByIDTx reads a product through tx so the price observed is the one
// the transaction commits against.
func (r *ProductRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Product, error) {
	return getProduct(ctx, tx, id)
}

func getProduct(ctx context.Context, q querier, id uint64) (model.Product, error) {
	return scanProduct(q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=?", id))
}

// List returns products newest first.  An empty category matches all.
func (r *ProductRepo) List(ctx context.Context, category string, limit, offset int) ([]model.Product, error) {
	q := "SELECT " + productColumns + " FROM products"
	args := []any{}
	if category != "" {
		q += " WHERE category=?"
		args = append(args, category)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies patch and returns the stored row.  sql.ErrNoRows when the
// product does not exist.
func (r *ProductRepo) Update(ctx context.Context, id uint64, patch ProductPatch) (model.Product, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if patch.NameKo != nil {
		add("name_ko", *patch.NameKo)
	}
	if patch.NameEn != nil {
		add("name_en", *patch.NameEn)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.PriceUSD != nil {
		add("price_usd", patch.PriceUSD.StringFixed(2))
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.OriginalURL != nil {
		add("original_url", *patch.OriginalURL)
	}
	if len(sets) > 0 {
		args = append(args, id)
		// existence is decided by the read below; MySQL reports 0 rows for no-op updates
		if _, err := r.db.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.Product{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a product.  It returns sql.ErrNoRows when nothing matched
// and ErrConflict when order lines still reference it.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (model.Product, error) {
	var p model.Product
	var nameEn, category, img, orig sql.NullString
	if err := row.Scan(&p.ID, &p.NameKo, &nameEn, &category, &p.PriceUSD, &img, &orig, &p.CreatedAt); err != nil {
		return model.Product{}, err
	}
	p.NameEn = nullStr(nameEn)
	p.Category = nullStr(category)
	p.ImageURL = nullStr(img)
	p.OriginalURL = nullStr(orig)
	return p, nil
}
