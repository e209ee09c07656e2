package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/service"
)

// UserHandler serves the caller's profile.
type UserHandler struct {
	Sessions *service.SessionService
}

func NewUserHandler(s *service.SessionService) *UserHandler { return &UserHandler{Sessions: s} }

type updateProfileReq struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	PCCCNumber      *string `json:"pcccNumber" validate:"omitempty,max=20"`
	DefaultAddress  *string `json:"defaultAddress" validate:"omitempty,max=500"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url,max=1000"`
}

// Me returns the authenticated user without credential material.
func (h *UserHandler) Me(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	u, err := h.Sessions.Me(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// UpdateMe edits the caller's profile.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	var req updateProfileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.Sessions.UpdateProfile(c.Request().Context(), id.UserID, service.ProfileInput{
		Name: req.Name, Phone: req.Phone, PCCCNumber: req.PCCCNumber,
		DefaultAddress: req.DefaultAddress, ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}
