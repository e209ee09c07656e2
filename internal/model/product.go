package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry sourced from an overseas shop.  PriceUSD
// is the live price; orders copy it at purchase time.
type Product struct {
	ID          uint64          // products.id
	NameKo      string          // products.name_ko
	NameEn      *string         // products.name_en (nullable)
	Category    *string         // products.category (nullable)
	PriceUSD    decimal.Decimal // products.price_usd DECIMAL(10,2)
	ImageURL    *string         // products.image_url (nullable)
	OriginalURL *string         // products.original_url (nullable)
	CreatedAt   time.Time       // products.created_at
}
