package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/queue"
	"github.com/iliyamo/jikgumate/internal/repository"
)

// OrderService places and manages orders.  Placement prices every line from
// the live catalog and writes the order, its lines and the shipping
// snapshot in one transaction bound to the caller's context.
type OrderService struct {
	db       *sql.DB
	orders   *repository.OrderRepo
	products *repository.ProductRepo
	pub      queue.Publisher
	log      zerolog.Logger
	now      func() time.Time
	load     func(ctx context.Context, id uint64) (*model.Order, error)
}

// NewOrderService wires the order coordinator.  pub may be nil.
func NewOrderService(db *sql.DB, pub queue.Publisher, log zerolog.Logger) *OrderService {
	if pub == nil {
		pub = queue.NoopPublisher{}
	}
	s := &OrderService{
		db:       db,
		orders:   repository.NewOrderRepo(db),
		products: repository.NewProductRepo(db),
		pub:      pub,
		log:      log.With().Str("component", "orders").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.load = s.GetOrder
	return s
}

// OrderItemInput is one requested product and quantity.
type OrderItemInput struct {
	ProductID    uint64
	Quantity     int
	OptionDetail *string
}

// ShippingInput is the requested delivery destination.  It is stored
// verbatim; only the presence of the recipient fields is checked.
type ShippingInput struct {
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	PCCCNumber       *string
	ShippingCompany  *string
	TrackingNumber   *string
}

// PlaceOrderInput bundles the items and the shipping destination.
type PlaceOrderInput struct {
	Items    []OrderItemInput
	Shipping ShippingInput
}

func (in PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.NewValidation("at least one item is required")
	}
	for i, it := range in.Items {
		if it.ProductID == 0 {
			return apperr.NewValidation(fmt.Sprintf("items[%d]: productId is required", i))
		}
		if it.Quantity < 1 {
			return apperr.NewValidation(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
	}
	sh := in.Shipping
	if strings.TrimSpace(sh.RecipientName) == "" || strings.TrimSpace(sh.RecipientPhone) == "" ||
		strings.TrimSpace(sh.RecipientAddress) == "" {
		return apperr.NewValidation("shipping recipient name, phone and address are required")
	}
	return nil
}

// PlaceOrder creates a PENDING order for userID.  An unknown product aborts
// the whole placement with NotFound; nothing is written in that case.
// After commit an order.placed event is published; publish failures are
// logged and never fail the request.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint64, in PlaceOrderInput) (*model.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	total := decimal.Zero
	lines := make([]model.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, err := s.products.GetByIDTx(ctx, tx, it.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFound(fmt.Sprintf("product %d not found", it.ProductID))
		}
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		total = total.Add(p.PriceUSD.Mul(decimal.NewFromInt(int64(it.Quantity))))
		lines = append(lines, model.LineItem{
			ProductID:    p.ID,
			Quantity:     it.Quantity,
			UnitPrice:    p.PriceUSD,
			OptionDetail: it.OptionDetail,
			Product:      &p,
		})
	}

	order := model.Order{
		UserID:      userID,
		TotalAmount: total.Round(2),
		Status:      model.OrderPending,
		OrderDate:   s.now(),
	}
	if err := s.orders.CreateTx(ctx, tx, &order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := s.orders.CreateItemsBulkTx(ctx, tx, lines); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}
	ship := model.ShippingSnapshot{
		OrderID:          order.ID,
		RecipientName:    in.Shipping.RecipientName,
		RecipientPhone:   in.Shipping.RecipientPhone,
		RecipientAddress: in.Shipping.RecipientAddress,
		PCCCNumber:       in.Shipping.PCCCNumber,
		ShippingCompany:  in.Shipping.ShippingCompany,
		TrackingNumber:   in.Shipping.TrackingNumber,
	}
	if err := s.orders.CreateShippingTx(ctx, tx, &ship); err != nil {
		return nil, fmt.Errorf("insert shipping info: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}
	committed = true

	// Committed: a failed reload falls back to what was written.
	placed, err := s.load(ctx, order.ID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("order_id", order.ID).Msg("reload placed order failed; returning in-memory copy")
		order.Items = lines
		order.Shipping = &ship
		placed = &order
	}
	s.publish(ctx, placed)
	s.log.Info().Uint64("order_id", placed.ID).Uint64("user_id", userID).
		Str("total", placed.TotalAmount.StringFixed(2)).Msg("order placed")
	return placed, nil
}

func (s *OrderService) publish(ctx context.Context, o *model.Order) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.pub.PublishOrderPlaced(pctx, queue.NewOrderPlacedEvent(o)); err != nil {
		s.log.Warn().Err(err).Uint64("order_id", o.ID).Msg("publish order.placed failed")
	}
}

// ListOrders returns the user's orders newest first, each with its items,
// their products and the shipping snapshot.
func (s *OrderService) ListOrders(ctx context.Context, userID uint64) ([]model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one expanded order or NotFound.
func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &o, nil
}

// SetStatus moves an order to status.  Any enumerated status is accepted
// from any current status.
func (s *OrderService) SetStatus(ctx context.Context, id uint64, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperr.NewValidation(fmt.Sprintf("unknown order status %q", status))
	}
	err := s.orders.UpdateStatus(ctx, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return s.GetOrder(ctx, id)
}

// RemoveOrder deletes the order with its items and shipping snapshot.
func (s *OrderService) RemoveOrder(ctx context.Context, id uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = s.orders.DeleteTx(ctx, tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	committed = true
	s.log.Info().Uint64("order_id", id).Msg("order removed")
	return nil
}

// UpdateShipping records the carrier and tracking number once the forwarder
// hands the parcel over.
func (s *OrderService) UpdateShipping(ctx context.Context, id uint64, company, tracking *string) (*model.Order, error) {
	if company == nil && tracking == nil {
		return nil, apperr.NewValidation("shippingCompany or trackingNumber is required")
	}
	err := s.orders.UpdateShipping(ctx, id, company, tracking)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFound(fmt.Sprintf("order %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("update order %d shipping: %w", id, err)
	}
	return s.GetOrder(ctx, id)
}
