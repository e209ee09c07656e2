// Package service holds the business operations behind the HTTP handlers:
// session management, order placement and the cart.  Services own their
// transactions and translate repository errors into apperr kinds.
package service

import "github.com/iliyamo/jikgumate/internal/apperr"

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell which one failed.
	ErrInvalidCredentials = apperr.New(apperr.Authentication, "invalid_credentials", "invalid email or password")

	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = apperr.New(apperr.Conflict, "email_taken", "email already registered")

	// ErrAccessDenied is returned when a refresh token does not match the
	// user's stored digest, or the user has no active session.
	ErrAccessDenied = apperr.New(apperr.Forbidden, "access_denied", "Access Denied")

	// ErrRefreshNotFound is returned when the presented refresh token is
	// absent from the token table, e.g. because it was already rotated.
	ErrRefreshNotFound = apperr.New(apperr.Forbidden, "token_not_found", "Access Denied: token not found")
)
