package handler // declare the package name; contains HTTP handlers

import (
	"context"  // bounds the readiness probes
	"database/sql"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
	"github.com/redis/go-redis/v9"
)

// Live is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the process is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Live(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler checks the backing stores for readiness probes.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client // nil when Redis is disabled
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb}
}

// Ready reports 200 when the database (and Redis, if configured) answer a
// ping within two seconds, 503 otherwise.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"database": "ok"}
	ok := true
	if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = "unavailable"
		ok = false
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			ok = false
		}
	}
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": checks})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": checks})
}
