package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/service"
)

// OrderHandler exposes order placement and management to the caller.
// A caller sees only their own orders; admins see all of them.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(s *service.OrderService) *OrderHandler { return &OrderHandler{Orders: s} }

type orderItemReq struct {
	ProductID    uint64  `json:"productId" validate:"required,gt=0"`
	Quantity     int     `json:"quantity" validate:"required,min=1,max=999"`
	OptionDetail *string `json:"optionDetail" validate:"omitempty,max=255"`
}

type shippingReq struct {
	RecipientName    string  `json:"recipientName" validate:"required,max=100"`
	RecipientAddress string  `json:"recipientAddress" validate:"required,max=500"`
	RecipientPhone   string  `json:"recipientPhone" validate:"required,max=30"`
	PCCCNumber       *string `json:"pcccNumber" validate:"omitempty,max=20"`
	ShippingCompany  *string `json:"shippingCompany" validate:"omitempty,max=100"`
	TrackingNumber   *string `json:"trackingNumber" validate:"omitempty,max=100"`
}

type createOrderReq struct {
	Items        []orderItemReq `json:"items" validate:"required,min=1,dive"`
	ShippingInfo *shippingReq   `json:"shippingInfo" validate:"required"`
}

type updateShippingReq struct {
	ShippingCompany *string `json:"shippingCompany" validate:"omitempty,max=100"`
	TrackingNumber  *string `json:"trackingNumber" validate:"omitempty,max=100"`
}

type updateOrderReq struct {
	Status *string `json:"status"`
}

// Create places an order for the caller and answers 201 with the expanded
// order.
func (h *OrderHandler) Create(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	var req createOrderReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	in := service.PlaceOrderInput{Items: make([]service.OrderItemInput, 0, len(req.Items))}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: it.ProductID, Quantity: it.Quantity, OptionDetail: it.OptionDetail,
		})
	}
	sh := req.ShippingInfo
	in.Shipping = service.ShippingInput{
		RecipientName: sh.RecipientName, RecipientPhone: sh.RecipientPhone, RecipientAddress: sh.RecipientAddress,
		PCCCNumber: sh.PCCCNumber, ShippingCompany: sh.ShippingCompany, TrackingNumber: sh.TrackingNumber,
	}

	o, err := h.Orders.PlaceOrder(c.Request().Context(), id.UserID, in)
	if err != nil {
		return err
	}
	middleware.RecordOrderPlaced()
	return c.JSON(http.StatusCreated, toOrderResponse(*o))
}

// List returns the caller's orders newest first.
func (h *OrderHandler) List(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	orders, err := h.Orders.ListOrders(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one order.
func (h *OrderHandler) Get(c echo.Context) error {
	o, err := h.visible(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

// Update changes the order status.  An empty body leaves the order as is.
func (h *OrderHandler) Update(c echo.Context) error {
	o, err := h.visible(c)
	if err != nil {
		return err
	}
	var req updateOrderReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Status == nil {
		return c.JSON(http.StatusOK, toOrderResponse(*o))
	}
	o, err = h.Orders.SetStatus(c.Request().Context(), o.ID, model.OrderStatus(*req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

// Delete removes the order with its lines and shipping snapshot.
func (h *OrderHandler) Delete(c echo.Context) error {
	o, err := h.visible(c)
	if err != nil {
		return err
	}
	if err := h.Orders.RemoveOrder(c.Request().Context(), o.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": o.ID, "message": "order deleted"})
}

// UpdateShipping sets the carrier and tracking number (admin).
func (h *OrderHandler) UpdateShipping(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateShippingReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.UpdateShipping(c.Request().Context(), id, req.ShippingCompany, req.TrackingNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

// visible loads the :id order if the caller owns it or is an admin.
// Someone else's order is reported exactly like a missing one.
func (h *OrderHandler) visible(c echo.Context) (*model.Order, error) {
	caller, _ := middleware.IdentityFrom(c)
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	o, err := h.Orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if o.UserID != caller.UserID && !caller.IsAdmin {
		return nil, apperr.NewNotFound(fmt.Sprintf("order %d not found", id))
	}
	return o, nil
}
