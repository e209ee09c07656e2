// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

import (
	"time"

	"github.com/iliyamo/jikgumate/internal/model"
)

// OrderPlacedEvent is published after an order commits.  It carries enough
// information for downstream consumers to log or notify without querying
// the primary database.
type OrderPlacedEvent struct {
	OrderID     uint64 `json:"order_id"`
	UserID      uint64 `json:"user_id"`
	TotalAmount string `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
	Status      string `json:"status"`
	PlacedAt    string `json:"placed_at"`
}

// NewOrderPlacedEvent builds the event for a committed order.
func NewOrderPlacedEvent(o *model.Order) OrderPlacedEvent {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderPlacedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		ItemCount:   count,
		Status:      string(o.Status),
		PlacedAt:    o.OrderDate.UTC().Format(time.RFC3339),
	}
}
