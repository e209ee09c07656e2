package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jikgumate/internal/apperr"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var internalBody = errorBody{Error: "internal_error", Message: "internal server error"}

// HTTPErrorHandler renders errors returned by handlers and middleware as
// {"error": code, "message": text}.  Unclassified errors become a generic
// 500 body; their detail only reaches the request log.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := renderError(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func renderError(err error) (int, errorBody) {
	if ae, ok := apperr.As(err); ok {
		if ae.Kind == apperr.Internal {
			return http.StatusInternalServerError, internalBody
		}
		return apperr.Status(ae.Kind), errorBody{Error: ae.Code, Message: ae.Message}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if he.Code >= http.StatusInternalServerError {
			return he.Code, errorBody{Error: codeForStatus(he.Code), Message: http.StatusText(he.Code)}
		}
		return he.Code, errorBody{Error: codeForStatus(he.Code), Message: msg}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, errorBody{Error: "timeout", Message: "request timed out"}
	}
	return http.StatusInternalServerError, internalBody
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	}
	if status >= 500 {
		return "internal_error"
	}
	return fmt.Sprintf("http_%d", status)
}
