package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/service"
)

// CartHandler serves the caller's cart.
type CartHandler struct {
	Carts *service.CartService
}

func NewCartHandler(s *service.CartService) *CartHandler { return &CartHandler{Carts: s} }

type addCartItemReq struct {
	ProductID uint64 `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

type updateCartItemReq struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}

func (h *CartHandler) Get(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	cart, err := h.Carts.GetCart(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(cart))
}

// AddItem adds quantity of a product, merging with an existing line.
func (h *CartHandler) AddItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	var req addCartItemReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.Carts.AddItem(c.Request().Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateCartItemReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cart, err := h.Carts.UpdateItem(c.Request().Context(), id.UserID, itemID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cart, err := h.Carts.RemoveItem(c.Request().Context(), id.UserID, itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(cart))
}
