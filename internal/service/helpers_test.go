package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/database/dbtest"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/repository"
	"github.com/iliyamo/jikgumate/internal/utils"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:  "at-secret-test",
		AccessTTL:     10 * time.Minute,
		RefreshSecret: "rt-secret-test",
		RefreshTTL:    time.Hour,
		SessionTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
}

func newSessionService(t *testing.T) (*SessionService, *sql.DB) {
	t.Helper()
	db := dbtest.Open(t)
	cfg := testAuthConfig()
	return NewSessionService(db, utils.NewTokenIssuer(cfg), cfg, zerolog.Nop()), db
}

func signUp(t *testing.T, s *SessionService, email string) (model.User, utils.TokenPair) {
	t.Helper()
	u, pair, err := s.SignUp(context.Background(), SignUpInput{Email: email, Password: "pw-123456", Name: "Kim"})
	if err != nil {
		t.Fatalf("SignUp(%s): %v", email, err)
	}
	return u, pair
}

func seedProduct(t *testing.T, db *sql.DB, name, price string) model.Product {
	t.Helper()
	p := model.Product{NameKo: name, PriceUSD: decimal.RequireFromString(price)}
	if err := repository.NewProductRepo(db).Create(context.Background(), &p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func activeTokens(t *testing.T, db *sql.DB, userID uint64) int {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM refresh_tokens WHERE user_id=? AND expires_at>?",
		userID, time.Now().UTC()).Scan(&n)
	if err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	return n
}
