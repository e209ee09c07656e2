package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(h, "s3cret") {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword(h, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}

func TestRefreshHashAcceptsLongTokens(t *testing.T) {
	long := strings.Repeat("a", 100) + "tail-1"
	other := strings.Repeat("a", 100) + "tail-2"
	h, err := HashRefreshToken(long, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashRefreshToken: %v", err)
	}
	if !VerifyRefreshToken(h, long) {
		t.Fatalf("token rejected")
	}
	// differs only past bcrypt's 72-byte window
	if VerifyRefreshToken(h, other) {
		t.Fatalf("different token accepted")
	}
}

func TestHashRefreshRawIsHex64(t *testing.T) {
	if got := HashRefreshRaw("x"); len(got) != 64 {
		t.Fatalf("digest length = %d", len(got))
	}
}
