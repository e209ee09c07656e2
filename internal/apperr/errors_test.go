package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := NewNotFound("product 7 not found")
	wrapped := fmt.Errorf("place order: %w", base)

	if got := KindOf(wrapped); got != NotFound {
		t.Fatalf("KindOf = %v, want %v", got, NotFound)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("errors.Is lost the classified error")
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("unclassified error kind = %v, want internal", got)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Validation:     http.StatusBadRequest,
		Authentication: http.StatusUnauthorized,
		Unauthorized:   http.StatusUnauthorized,
		Forbidden:      http.StatusForbidden,
		NotFound:       http.StatusNotFound,
		Conflict:       http.StatusConflict,
		Internal:       http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := Status(k); got != want {
			t.Fatalf("Status(%v) = %d, want %d", k, got, want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(Internal, "internal_error", "internal server error", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable through Unwrap")
	}
}
