package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashRefreshToken bcrypts the SHA‑256 digest of a refresh token.  JWTs are
// longer than the 72 bytes bcrypt accepts, so the fixed-size digest is
// hashed instead of the raw token.
func HashRefreshToken(raw string, cost int) (string, error) {
	return HashPassword(HashRefreshRaw(raw), cost)
}

// VerifyRefreshToken compares a presented refresh token with a stored
// HashRefreshToken digest.
func VerifyRefreshToken(hash, raw string) bool {
	return VerifyPassword(hash, HashRefreshRaw(raw))
}
