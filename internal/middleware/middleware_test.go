package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/utils"
)

func testIssuer() *utils.TokenIssuer {
	return utils.NewTokenIssuer(config.AuthConfig{
		AccessSecret: "a", AccessTTL: time.Minute,
		RefreshSecret: "r", RefreshTTL: time.Hour,
	})
}

func newCtx(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestAccessAuth(t *testing.T) {
	iss := testIssuer()
	pair, err := iss.Issue(model.Identity{UserID: 5, Email: "u@x.io"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	h := AccessAuth(iss)(func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok || id.UserID != 5 {
			t.Fatalf("identity = %+v %v", id, ok)
		}
		return okHandler(c)
	})

	cases := []struct {
		name   string
		header string
		kind   apperr.Kind
		ok     bool
	}{
		{"missing", "", apperr.Unauthorized, false},
		{"not bearer", "Basic abc", apperr.Unauthorized, false},
		{"refresh token", "Bearer " + pair.RefreshToken, apperr.Unauthorized, false},
		{"valid", "Bearer " + pair.AccessToken, 0, true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tc.header)
		}
		c, _ := newCtx(req)
		err := h(c)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			continue
		}
		if apperr.KindOf(err) != tc.kind {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
	}
}

func TestRefreshAuthReadsCookie(t *testing.T) {
	iss := testIssuer()
	pair, _ := iss.Issue(model.Identity{UserID: 8})
	var seen string
	h := RefreshAuth(iss)(func(c echo.Context) error {
		seen = RefreshTokenFrom(c)
		return okHandler(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.RefreshToken})
	c, _ := newCtx(req)
	if err := h(c); err != nil {
		t.Fatalf("RefreshAuth: %v", err)
	}
	if seen != pair.RefreshToken {
		t.Fatalf("raw token not stored")
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	c, _ = newCtx(req)
	if err := h(c); apperr.KindOf(err) != apperr.Unauthorized {
		t.Fatalf("missing cookie err = %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.RefreshToken)
	c, _ = newCtx(req)
	if err := h(c); apperr.KindOf(err) != apperr.Unauthorized {
		t.Fatalf("header refresh token err = %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.AccessToken})
	c, _ = newCtx(req)
	if err := h(c); apperr.KindOf(err) != apperr.Unauthorized {
		t.Fatalf("access token as refresh err = %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin()(okHandler)

	c, _ := newCtx(httptest.NewRequest(http.MethodPost, "/products", nil))
	SetIdentity(c, model.Identity{UserID: 1})
	if err := h(c); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("non-admin err = %v", err)
	}

	c, rec := newCtx(httptest.NewRequest(http.MethodPost, "/products", nil))
	SetIdentity(c, model.Identity{UserID: 1, IsAdmin: true})
	if err := h(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("admin: err=%v code=%d", err, rec.Code)
	}
}

func TestTokenBucketMemoryFallback(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: time.Hour, KeyStrategy: "ip", Prefix: "rl-test",
	}
	h := NewTokenBucket(cfg, nil, zerolog.Nop())(okHandler)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		c, rec := newCtx(req)
		if err := h(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		codes = append(codes, rec.Code)
		if i == 2 && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("blocked response without Retry-After")
		}
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	c, rec := newCtx(req)
	_ = h(c)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("second client code = %d", rec.Code)
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	h := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, zerolog.Nop())(okHandler)
	for i := 0; i < 5; i++ {
		c, rec := newCtx(httptest.NewRequest(http.MethodGet, "/", nil))
		_ = h(c)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("disabled limiter blocked request %d", i)
		}
	}
}

func TestRateKeyStrategies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.RemoteAddr = "1.2.3.4:5"
	c, _ := newCtx(req)
	c.SetPath("/orders")
	SetIdentity(c, model.Identity{UserID: 77})

	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c); got != "rl:user:77" {
		t.Fatalf("user key = %s", got)
	}
	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c); got != "rl:ip:1.2.3.4:route:GET /orders" {
		t.Fatalf("ip_route key = %s", got)
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decode = %d %v %q %v", status, gotHdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatalf("short payload accepted")
	}
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
	c1, _ := newCtx(httptest.NewRequest(http.MethodGet, "/products/1", nil))
	c2, _ := newCtx(httptest.NewRequest(http.MethodGet, "/products/2", nil))
	if cacheKeyFrom(cfg, c1) == cacheKeyFrom(cfg, c2) {
		t.Fatalf("different products share a cache key")
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	h := NewRedisCache(config.CacheConfig{Enabled: true}, nil, zerolog.Nop())(okHandler)
	c, rec := newCtx(httptest.NewRequest(http.MethodGet, "/products", nil))
	if err := h(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("pass-through: err=%v code=%d", err, rec.Code)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatalf("X-Cache set without redis")
	}
}
