package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/jikgumate/internal/handler"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/utils"
)

// Auth names the credential a route requires.
type Auth int

const (
	Public  Auth = iota // no credential
	Access              // valid access token
	Refresh             // valid refresh token in the Refresh cookie
	Admin               // valid access token with the admin claim
)

func (a Auth) String() string {
	switch a {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	case Admin:
		return "admin"
	}
	return "public"
}

// Route is one entry of the API table.  Extra middleware runs before the
// auth guards so rejected credentials still count against the limiter.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
	Auth    Auth
	Extra   []echo.MiddlewareFunc
}

// Handlers bundles everything the route table points at.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Orders   *handler.OrderHandler
	Health   *handler.HealthHandler
}

// Options carries per-route middleware built by main: the stricter limiter
// for /auth and the response cache for the public catalog.  Nil entries
// are skipped.
type Options struct {
	AuthLimiter  echo.MiddlewareFunc
	CatalogCache echo.MiddlewareFunc
}

// Routes returns the full API table.
func Routes(h Handlers, opt Options) []Route {
	auth := extras(opt.AuthLimiter)
	cache := extras(opt.CatalogCache)
	return []Route{
		{Method: http.MethodGet, Path: "/healthz", Handler: handler.Live, Auth: Public},
		{Method: http.MethodGet, Path: "/readyz", Handler: h.Health.Ready, Auth: Public},

		{Method: http.MethodPost, Path: "/auth/signup", Handler: h.Auth.Signup, Auth: Public, Extra: auth},
		{Method: http.MethodPost, Path: "/auth/login", Handler: h.Auth.Login, Auth: Public, Extra: auth},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: h.Auth.Logout, Auth: Access, Extra: auth},
		{Method: http.MethodPost, Path: "/auth/refresh", Handler: h.Auth.Refresh, Auth: Refresh, Extra: auth},

		{Method: http.MethodGet, Path: "/users/me", Handler: h.Users.Me, Auth: Access},
		{Method: http.MethodPatch, Path: "/users/me", Handler: h.Users.UpdateMe, Auth: Access},

		{Method: http.MethodGet, Path: "/products", Handler: h.Products.List, Auth: Public, Extra: cache},
		{Method: http.MethodGet, Path: "/products/:id", Handler: h.Products.Get, Auth: Public, Extra: cache},
		{Method: http.MethodPost, Path: "/products", Handler: h.Products.Create, Auth: Admin},
		{Method: http.MethodPatch, Path: "/products/:id", Handler: h.Products.Update, Auth: Admin},
		{Method: http.MethodDelete, Path: "/products/:id", Handler: h.Products.Delete, Auth: Admin},

		{Method: http.MethodGet, Path: "/carts", Handler: h.Carts.Get, Auth: Access},
		{Method: http.MethodPost, Path: "/carts/items", Handler: h.Carts.AddItem, Auth: Access},
		{Method: http.MethodPatch, Path: "/carts/items/:id", Handler: h.Carts.UpdateItem, Auth: Access},
		{Method: http.MethodDelete, Path: "/carts/items/:id", Handler: h.Carts.RemoveItem, Auth: Access},

		{Method: http.MethodPost, Path: "/orders", Handler: h.Orders.Create, Auth: Access},
		{Method: http.MethodGet, Path: "/orders", Handler: h.Orders.List, Auth: Access},
		{Method: http.MethodGet, Path: "/orders/:id", Handler: h.Orders.Get, Auth: Access},
		{Method: http.MethodPatch, Path: "/orders/:id", Handler: h.Orders.Update, Auth: Access},
		{Method: http.MethodDelete, Path: "/orders/:id", Handler: h.Orders.Delete, Auth: Access},
		{Method: http.MethodPatch, Path: "/orders/:id/shipping", Handler: h.Orders.UpdateShipping, Auth: Admin},
	}
}

// Register mounts routes on e, resolving each Auth requirement to its
// guard chain.
func Register(e *echo.Echo, routes []Route, issuer *utils.TokenIssuer) {
	for _, r := range routes {
		mw := append(append([]echo.MiddlewareFunc{}, r.Extra...), Guards(r.Auth, issuer)...)
		e.Add(r.Method, r.Path, r.Handler, mw...)
	}
}

// Guards returns the ordered middleware enforcing a.  Each guard either
// stores the verified identity on the context or stops the request.
func Guards(a Auth, issuer *utils.TokenIssuer) []echo.MiddlewareFunc {
	switch a {
	case Access:
		return []echo.MiddlewareFunc{middleware.AccessAuth(issuer)}
	case Admin:
		return []echo.MiddlewareFunc{middleware.AccessAuth(issuer), middleware.RequireAdmin()}
	case Refresh:
		return []echo.MiddlewareFunc{middleware.RefreshAuth(issuer)}
	}
	return nil
}

func extras(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
