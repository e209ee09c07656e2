package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/jikgumate/internal/apperr"
)

var errAdminOnly = apperr.NewForbidden("admin privileges required")

// RequireAdmin aborts with 403 unless the identity stored by AccessAuth
// carries the admin claim.  It must run after AccessAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return errMissingBearer
			}
			if !id.IsAdmin {
				return errAdminOnly
			}
			return next(c)
		}
	}
}
