package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment stage of an order.
type OrderStatus string

const (
	OrderPending            OrderStatus = "PENDING"
	OrderPurchased          OrderStatus = "PURCHASED"
	OrderArrivedAtWarehouse OrderStatus = "ARRIVED_AT_WAREHOUSE"
	OrderShippingStart      OrderStatus = "SHIPPING_START"
	OrderDelivered          OrderStatus = "DELIVERED"
)

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPurchased, OrderArrivedAtWarehouse, OrderShippingStart, OrderDelivered:
		return true
	}
	return false
}

// Order aggregates line items and a shipping snapshot placed in a
// single transaction.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the order.
//  TotalAmount – sum of unit price × quantity at placement, 2 decimals.
//                Never recomputed after creation.
//  Status      – fulfilment stage.
//  OrderDate   – placement timestamp.
//  Items       – line items (loaded on expansion).
//  Shipping    – shipping snapshot (loaded on expansion).
type Order struct {
	ID          uint64
	UserID      uint64
	TotalAmount decimal.Decimal
	Status      OrderStatus
	OrderDate   time.Time
	Items       []LineItem
	Shipping    *ShippingSnapshot
}

// LineItem is a product and quantity within an order.  UnitPrice is
// the catalog price frozen at placement.
type LineItem struct {
	ID           uint64
	OrderID      uint64
	ProductID    uint64
	Quantity     int
	UnitPrice    decimal.Decimal
	OptionDetail *string
	Product      *Product
}

// ShippingSnapshot is the delivery destination captured at order time.
// It never follows later edits to the user's profile.
type ShippingSnapshot struct {
	ID               uint64
	OrderID          uint64
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	PCCCNumber       *string
	ShippingCompany  *string
	TrackingNumber   *string
}
