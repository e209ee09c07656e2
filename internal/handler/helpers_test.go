package handler_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/database/dbtest"
	"github.com/iliyamo/jikgumate/internal/handler"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/queue"
	"github.com/iliyamo/jikgumate/internal/repository"
	"github.com/iliyamo/jikgumate/internal/router"
	"github.com/iliyamo/jikgumate/internal/service"
	"github.com/iliyamo/jikgumate/internal/utils"
)

type testServer struct {
	e   *echo.Echo
	db  *sql.DB
	pub *queue.RecordingPublisher
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	cfg := config.AuthConfig{
		AccessSecret:  "at-secret-test",
		AccessTTL:     10 * time.Minute,
		RefreshSecret: "rt-secret-test",
		RefreshTTL:    time.Hour,
		SessionTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	log := zerolog.Nop()
	issuer := utils.NewTokenIssuer(cfg)
	pub := &queue.RecordingPublisher{}
	sessions := service.NewSessionService(db, issuer, cfg, log)
	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, sessions),
		Users:    handler.NewUserHandler(sessions),
		Products: handler.NewProductHandler(repository.NewProductRepo(db), config.CacheConfig{Prefix: "test"}, nil, log),
		Carts:    handler.NewCartHandler(service.NewCartService(db)),
		Orders:   handler.NewOrderHandler(service.NewOrderService(db, pub, log)),
		Health:   handler.NewHealthHandler(db, nil),
	}

	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewRequestValidator()
	router.Register(e, router.Routes(h, router.Options{}), issuer)
	return &testServer{e: e, db: db, pub: pub}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	body := decode[map[string]any](t, rec)
	if body["error"] != code {
		t.Fatalf("error code = %v, want %s", body["error"], code)
	}
	if _, ok := body["message"].(string); !ok {
		t.Fatalf("message missing: %s", rec.Body.String())
	}
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.RefreshCookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", middleware.RefreshCookieName)
	return nil
}

type session struct {
	token  string
	cookie *http.Cookie
}

func (s *testServer) signup(t *testing.T, email string) session {
	t.Helper()
	rec := s.do(t, call{method: http.MethodPost, path: "/auth/signup", body: map[string]any{
		"email": email, "password": "password-1", "name": "Kim",
	}})
	expectStatus(t, rec, http.StatusCreated)
	body := decode[map[string]any](t, rec)
	return session{token: body["accessToken"].(string), cookie: refreshCookie(t, rec)}
}

// admin signs up a user, grants the admin flag and logs in again so the
// access token carries the claim.
func (s *testServer) admin(t *testing.T) session {
	t.Helper()
	s.signup(t, "admin@example.com")
	if _, err := s.db.Exec("UPDATE users SET is_admin=1 WHERE email=?", "admin@example.com"); err != nil {
		t.Fatalf("grant admin: %v", err)
	}
	rec := s.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]any{
		"email": "admin@example.com", "password": "password-1",
	}})
	expectStatus(t, rec, http.StatusOK)
	body := decode[map[string]any](t, rec)
	return session{token: body["accessToken"].(string), cookie: refreshCookie(t, rec)}
}

func (s *testServer) createProduct(t *testing.T, admin session, name, price string) uint64 {
	t.Helper()
	rec := s.do(t, call{method: http.MethodPost, path: "/products", token: admin.token, body: map[string]any{
		"nameKo": name, "priceUsd": price,
	}})
	expectStatus(t, rec, http.StatusCreated)
	return uint64(decode[map[string]any](t, rec)["id"].(float64))
}
