package middleware

// identity.go defines the context keys the auth guards populate and the
// accessors handlers use to read them.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/model"
)

const (
	identityKey     = "identity"
	refreshTokenKey = "refresh_token"
)

// SetIdentity stores the verified caller on the request context.
func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller stored by AccessAuth or RefreshAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// RefreshTokenFrom returns the raw refresh token verified by RefreshAuth.
func RefreshTokenFrom(c echo.Context) string {
	s, _ := c.Get(refreshTokenKey).(string)
	return s
}

// userID returns the caller's id for keying, or "anon" when the request is
// not authenticated (yet).
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
