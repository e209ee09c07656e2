package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel for rejected tokens
	"fmt"           // error wrapping
	"strconv"       // subject <-> user id conversion
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique token ids (jti)

	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/model"
)

// ErrInvalidToken is returned for any token that fails signature, expiry or
// claim validation.  The underlying reason is wrapped for logging only.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set shared by access and refresh tokens.  The subject
// carries the user id in decimal form.
type Claims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenPair is the result of issuing a session: a short‑lived access token
// sent in the response body and a long‑lived refresh token delivered in an
// HttpOnly cookie.
type TokenPair struct {
	AccessToken  string    // serialized access JWT
	AccessExp    time.Time // UTC expiry of the access token
	RefreshToken string    // serialized refresh JWT
	RefreshExp   time.Time // UTC expiry of the refresh token
}

// TokenIssuer signs and verifies both token classes.  Access and refresh
// tokens use different secrets so a token of one class never verifies as
// the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer builds an issuer from the auth configuration.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests to exercise expiry.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// Issue signs an access/refresh pair for the given identity.  Both tokens
// carry a fresh jti so two pairs issued within the same second differ.
func (i *TokenIssuer) Issue(id model.Identity) (TokenPair, error) {
	now := i.now()
	access, accessExp, err := i.sign(id, i.accessSecret, now, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := i.sign(id, i.refreshSecret, now, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

func (i *TokenIssuer) sign(id model.Identity, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Email:   id.Email,
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess verifies an access token and returns its identity.
func (i *TokenIssuer) ParseAccess(token string) (model.Identity, error) {
	return i.parse(token, i.accessSecret)
}

// ParseRefresh verifies a refresh token and returns its identity.
func (i *TokenIssuer) ParseRefresh(token string) (model.Identity, error) {
	return i.parse(token, i.refreshSecret)
}

func (i *TokenIssuer) parse(token string, secret []byte) (model.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return model.Identity{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return model.Identity{UserID: uid, Email: claims.Email, IsAdmin: claims.IsAdmin}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash in the database prevents attackers from
// using stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
