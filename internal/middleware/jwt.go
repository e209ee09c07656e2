package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/utils"
)

// RefreshCookieName is the HttpOnly cookie carrying the refresh token.
const RefreshCookieName = "Refresh"

var (
	errMissingBearer  = apperr.New(apperr.Unauthorized, "unauthorized", "missing bearer token")
	errInvalidToken   = apperr.New(apperr.Unauthorized, "invalid_token", "invalid or expired token")
	errMissingRefresh = apperr.New(apperr.Unauthorized, "unauthorized", "missing refresh token")
)

// AccessAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's identity on the context.  Failures are returned
// as typed errors and rendered by the central error handler.
func AccessAuth(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return errMissingBearer
			}
			id, err := issuer.ParseAccess(raw)
			if err != nil {
				return errInvalidToken
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// RefreshAuth validates the refresh token from the Refresh cookie and stores
// both the identity and the raw token so the refresh handler can rotate it.
// An Authorization header is ignored on this route.
func RefreshAuth(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(RefreshCookieName)
			if err != nil || ck.Value == "" {
				return errMissingRefresh
			}
			raw := ck.Value
			id, err := issuer.ParseRefresh(raw)
			if err != nil {
				return errInvalidToken
			}
			SetIdentity(c, id)
			c.Set(refreshTokenKey, raw)
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}
