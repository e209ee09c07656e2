package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductHandler serves the public catalog and its admin maintenance.
// Every write purges the response cache.
type ProductHandler struct {
	Products *repository.ProductRepo
	Cache    config.CacheConfig
	Redis    *redis.Client
	Log      zerolog.Logger
}

func NewProductHandler(p *repository.ProductRepo, cache config.CacheConfig, rdb *redis.Client, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{Products: p, Cache: cache, Redis: rdb, Log: log}
}

type createProductReq struct {
	NameKo      string          `json:"nameKo" validate:"required,max=255"`
	NameEn      *string         `json:"nameEn" validate:"omitempty,max=255"`
	Category    *string         `json:"category" validate:"omitempty,max=100"`
	PriceUSD    decimal.Decimal `json:"priceUsd"`
	ImageURL    *string         `json:"imageUrl" validate:"omitempty,url,max=1000"`
	OriginalURL *string         `json:"originalUrl" validate:"omitempty,url,max=1000"`
}

type updateProductReq struct {
	NameKo      *string          `json:"nameKo" validate:"omitempty,min=1,max=255"`
	NameEn      *string          `json:"nameEn" validate:"omitempty,max=255"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	PriceUSD    *decimal.Decimal `json:"priceUsd"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url,max=1000"`
	OriginalURL *string          `json:"originalUrl" validate:"omitempty,url,max=1000"`
}

// List returns one page of products, optionally filtered by ?category=.
func (h *ProductHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	ps, err := h.Products.List(c.Request().Context(), c.QueryParam("category"), limit, offset)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound(fmt.Sprintf("product %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("load product %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

// Create adds a product (admin).
func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if !req.PriceUSD.IsPositive() {
		return apperr.NewValidation("priceUsd must be greater than 0")
	}
	p := model.Product{
		NameKo: req.NameKo, NameEn: req.NameEn, Category: req.Category,
		PriceUSD: req.PriceUSD.Round(2), ImageURL: req.ImageURL, OriginalURL: req.OriginalURL,
	}
	if err := h.Products.Create(c.Request().Context(), &p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

// Update applies a partial update (admin).
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateProductReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	patch := repository.ProductPatch{
		NameKo: req.NameKo, NameEn: req.NameEn, Category: req.Category,
		ImageURL: req.ImageURL, OriginalURL: req.OriginalURL,
	}
	if req.PriceUSD != nil {
		if !req.PriceUSD.IsPositive() {
			return apperr.NewValidation("priceUsd must be greater than 0")
		}
		price := req.PriceUSD.Round(2)
		patch.PriceUSD = &price
	}
	p, err := h.Products.Update(c.Request().Context(), id, patch)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound(fmt.Sprintf("product %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusOK, toProductResponse(p))
}

// Delete removes a product (admin) along with any cart lines holding it.
// Products referenced by order lines cannot be deleted.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	err = h.Products.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NewNotFound(fmt.Sprintf("product %d not found", id))
	case errors.Is(err, repository.ErrConflict):
		return apperr.NewConflict("product is referenced by existing orders")
	case err != nil:
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	h.purge(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// purge drops cached catalog responses.  A failure only leaves entries to
// expire on their own.
func (h *ProductHandler) purge(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := middleware.PurgeCache(ctx, h.Cache, h.Redis); err != nil {
		h.Log.Warn().Err(err).Msg("cache purge failed")
	}
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.NewValidation(name + " must be an integer")
	}
	return n, nil
}
