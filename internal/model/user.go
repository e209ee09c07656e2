package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Email           – unique email address (lower-cased).
//  PasswordHash    – bcrypt hashed password.
//  Name            – display name.
//  Phone           – optional contact number.
//  PCCCNumber      – personal customs clearance code used for import declarations.
//  DefaultAddress  – optional default shipping address.
//  ProfileImageURL – optional avatar location.
//  IsAdmin         – whether the account may manage the catalog.
//  HashedRT        – bcrypt digest of the current refresh token (nil when logged out).
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64    // users.id
	Email           string    // users.email
	PasswordHash    string    // users.password_hash
	Name            string    // users.name
	Phone           *string   // users.phone (nullable)
	PCCCNumber      *string   // users.pccc_number (nullable)
	DefaultAddress  *string   // users.default_address (nullable)
	ProfileImageURL *string   // users.profile_image_url (nullable)
	IsAdmin         bool      // users.is_admin
	HashedRT        *string   // users.hashed_rt (nullable)
	CreatedAt       time.Time // users.created_at
	UpdatedAt       time.Time // users.updated_at
}

// Sanitized returns a copy without any credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.HashedRT = nil
	return u
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA‑256 hex digest.  A row is
// deleted (not flagged) when the token is rotated or the user logs
// out, so at most one row per user exists after a successful login.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}

// Identity is the verified caller extracted from a token at the
// request boundary.
type Identity struct {
	UserID  uint64
	Email   string
	IsAdmin bool
}
