package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/queue"
)

func shipping() ShippingInput {
	return ShippingInput{RecipientName: "Lee", RecipientPhone: "010-1234-5678", RecipientAddress: "Seoul"}
}

func TestPlaceOrderTotalsAndSnapshot(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "buyer@example.com")
	p := seedProduct(t, db, "셔츠", "10.00")
	pub := &queue.RecordingPublisher{}
	orders := NewOrderService(db, pub, zerolog.Nop())

	o, err := orders.PlaceOrder(context.Background(), u.ID, PlaceOrderInput{
		Items:    []OrderItemInput{{ProductID: p.ID, Quantity: 2}},
		Shipping: shipping(),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got := o.TotalAmount.StringFixed(2); got != "20.00" {
		t.Fatalf("total = %s, want 20.00", got)
	}
	if o.Status != model.OrderPending || o.UserID != u.ID {
		t.Fatalf("order = %+v", o)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 || o.Shipping == nil || o.Shipping.RecipientName != "Lee" {
		t.Fatalf("expansion = %+v", o)
	}
	if ev := pub.Events(); len(ev) != 1 || ev[0].OrderID != o.ID || ev[0].TotalAmount != "20.00" {
		t.Fatalf("events = %+v", ev)
	}
}

func TestPlaceOrderRoundsDecimalTotal(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "dec@example.com")
	a := seedProduct(t, db, "a", "0.10")
	b := seedProduct(t, db, "b", "0.20")
	orders := NewOrderService(db, nil, zerolog.Nop())

	o, err := orders.PlaceOrder(context.Background(), u.ID, PlaceOrderInput{
		Items:    []OrderItemInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}},
		Shipping: shipping(),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got := o.TotalAmount.StringFixed(2); got != "0.30" {
		t.Fatalf("total = %s, want 0.30", got)
	}
}

func TestPlaceOrderUnknownProductWritesNothing(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "miss@example.com")
	p := seedProduct(t, db, "ok", "5.00")
	orders := NewOrderService(db, nil, zerolog.Nop())

	_, err := orders.PlaceOrder(context.Background(), u.ID, PlaceOrderInput{
		Items:    []OrderItemInput{{ProductID: p.ID, Quantity: 1}, {ProductID: 9999, Quantity: 1}},
		Shipping: shipping(),
	})
	if apperr.KindOf(err) != apperr.NotFound || !strings.Contains(err.Error(), "9999") {
		t.Fatalf("err = %v, want NotFound naming 9999", err)
	}
	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM orders WHERE user_id = ?", u.ID).Scan(&n)
	if err != nil || n != 0 {
		t.Fatalf("orders after failed placement = %d (%v)", n, err)
	}
	var items, ships int
	_ = db.QueryRow("SELECT COUNT(*) FROM order_items").Scan(&items)
	_ = db.QueryRow("SELECT COUNT(*) FROM shipping_info").Scan(&ships)
	if items != 0 || ships != 0 {
		t.Fatalf("leftover rows: items=%d shipping=%d", items, ships)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "val@example.com")
	orders := NewOrderService(db, nil, zerolog.Nop())
	cases := []PlaceOrderInput{
		{Shipping: shipping()},
		{Items: []OrderItemInput{{ProductID: 1, Quantity: 0}}, Shipping: shipping()},
		{Items: []OrderItemInput{{ProductID: 1, Quantity: 1}}},
	}
	for i, in := range cases {
		if _, err := orders.PlaceOrder(context.Background(), u.ID, in); apperr.KindOf(err) != apperr.Validation {
			t.Fatalf("case %d: err = %v, want validation", i, err)
		}
	}
}

func TestPlaceOrderPublishFailureDoesNotFail(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "pub@example.com")
	p := seedProduct(t, db, "x", "1.00")
	orders := NewOrderService(db, &queue.RecordingPublisher{Err: errors.New("broker down")}, zerolog.Nop())

	if _, err := orders.PlaceOrder(context.Background(), u.ID, PlaceOrderInput{
		Items: []OrderItemInput{{ProductID: p.ID, Quantity: 1}}, Shipping: shipping(),
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
}

func TestPlaceOrderReloadFailureReturnsCommittedOrder(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "reload@example.com")
	p := seedProduct(t, db, "가방", "12.50")
	pub := &queue.RecordingPublisher{}
	orders := NewOrderService(db, pub, zerolog.Nop())
	orders.load = func(context.Context, uint64) (*model.Order, error) {
		return nil, context.DeadlineExceeded
	}

	o, err := orders.PlaceOrder(context.Background(), u.ID, PlaceOrderInput{
		Items:    []OrderItemInput{{ProductID: p.ID, Quantity: 2}},
		Shipping: shipping(),
	})
	if err != nil {
		t.Fatalf("PlaceOrder after committed write: %v", err)
	}
	if o.ID == 0 || o.TotalAmount.StringFixed(2) != "25.00" || o.Status != model.OrderPending {
		t.Fatalf("order = %+v", o)
	}
	if len(o.Items) != 1 || o.Items[0].OrderID != o.ID || o.Items[0].Product == nil {
		t.Fatalf("items = %+v", o.Items)
	}
	if o.Shipping == nil || o.Shipping.OrderID != o.ID || o.Shipping.RecipientName != "Lee" {
		t.Fatalf("shipping = %+v", o.Shipping)
	}
	if ev := pub.Events(); len(ev) != 1 || ev[0].OrderID != o.ID {
		t.Fatalf("events = %+v", ev)
	}

	stored, err := orders.GetOrder(context.Background(), o.ID)
	if err != nil || stored.TotalAmount.StringFixed(2) != "25.00" {
		t.Fatalf("stored order = %+v, %v", stored, err)
	}
	var n int
	_ = db.QueryRow("SELECT COUNT(*) FROM orders WHERE user_id = ?", u.ID).Scan(&n)
	if n != 1 {
		t.Fatalf("orders = %d, want 1", n)
	}
}

func TestOrderLifecycle(t *testing.T) {
	s, db := newSessionService(t)
	u, _ := signUp(t, s, "life@example.com")
	p := seedProduct(t, db, "x", "3.33")
	orders := NewOrderService(db, nil, zerolog.Nop())
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 2; i++ {
		o, err := orders.PlaceOrder(ctx, u.ID, PlaceOrderInput{
			Items: []OrderItemInput{{ProductID: p.ID, Quantity: i + 1}}, Shipping: shipping(),
		})
		if err != nil {
			t.Fatalf("PlaceOrder: %v", err)
		}
		ids = append(ids, o.ID)
	}

	list, err := orders.ListOrders(ctx, u.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListOrders = %d (%v)", len(list), err)
	}
	if list[0].ID != ids[1] {
		t.Fatalf("list not newest first: %d, %d", list[0].ID, list[1].ID)
	}

	o, err := orders.SetStatus(ctx, ids[0], model.OrderShippingStart)
	if err != nil || o.Status != model.OrderShippingStart {
		t.Fatalf("SetStatus = %+v (%v)", o, err)
	}
	// any enumerated transition is accepted
	if _, err := orders.SetStatus(ctx, ids[0], model.OrderPending); err != nil {
		t.Fatalf("SetStatus back to pending: %v", err)
	}
	if _, err := orders.SetStatus(ctx, ids[0], "LOST"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("unknown status err = %v", err)
	}
	if _, err := orders.SetStatus(ctx, 777, model.OrderDelivered); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("missing order err = %v", err)
	}

	if err := orders.RemoveOrder(ctx, ids[0]); err != nil {
		t.Fatalf("RemoveOrder: %v", err)
	}
	if _, err := orders.GetOrder(ctx, ids[0]); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("GetOrder after remove err = %v", err)
	}
	if err := orders.RemoveOrder(ctx, ids[0]); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("second RemoveOrder err = %v", err)
	}
}
