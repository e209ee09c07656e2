package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/service"
)

// AuthHandler bundles dependencies for the session endpoints.  The refresh
// token only ever travels in the HttpOnly Refresh cookie; the access token
// is returned in the body.
type AuthHandler struct {
	Cfg      config.AuthConfig
	Sessions *service.SessionService
}

func NewAuthHandler(cfg config.AuthConfig, s *service.SessionService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Sessions: s}
}

// ----- DTOs -----

type signupReq struct {
	Email          string  `json:"email" validate:"required,email,max=255"`
	Password       string  `json:"password" validate:"required,min=8,max=72"`
	Name           string  `json:"name" validate:"required,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=30"`
	PCCCNumber     *string `json:"pcccNumber" validate:"omitempty,max=20"`
	DefaultAddress *string `json:"defaultAddress" validate:"omitempty,max=500"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	User        *userResponse `json:"user,omitempty"`
}

// Signup creates the account, its cart and a first session.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindAndValidate(c, &req); err != nil {
		middleware.RecordAuthAttempt("signup", false)
		return err
	}
	u, pair, err := h.Sessions.SignUp(c.Request().Context(), service.SignUpInput{
		Email: req.Email, Password: req.Password, Name: req.Name,
		Phone: req.Phone, PCCCNumber: req.PCCCNumber, DefaultAddress: req.DefaultAddress,
	})
	middleware.RecordAuthAttempt("signup", err == nil)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	ur := toUserResponse(u)
	return c.JSON(http.StatusCreated, tokenResp{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExp, User: &ur})
}

// Login verifies credentials and replaces any previous session.  Unknown
// email and wrong password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		middleware.RecordAuthAttempt("login", false)
		return err
	}
	ctx := c.Request().Context()
	u, err := h.Sessions.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		middleware.RecordAuthAttempt("login", false)
		return err
	}
	pair, err := h.Sessions.Login(ctx, u)
	middleware.RecordAuthAttempt("login", err == nil)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExp})
}

// Refresh rotates the refresh token verified by middleware.RefreshAuth.
func (h *AuthHandler) Refresh(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	presented := middleware.RefreshTokenFrom(c)
	if !ok || presented == "" {
		return apperr.NewUnauthorized("missing refresh token")
	}
	pair, err := h.Sessions.Rotate(c.Request().Context(), id.UserID, presented)
	middleware.RecordAuthAttempt("refresh", err == nil)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExp})
}

// Logout revokes every session of the caller and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.NewUnauthorized("unauthorized")
	}
	err := h.Sessions.Logout(c.Request().Context(), id.UserID)
	middleware.RecordAuthAttempt("logout", err == nil)
	if err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

