package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeAuthRequired, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeImmutable, http.StatusBadRequest},
		{CodeTooLateToCancel, http.StatusBadRequest},
		{CodeInsufficientInventory, http.StatusBadRequest},
		{CodeCooldownActive, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		if got := Status(New(tc.code)); got != tc.want {
			t.Errorf("Status(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestStatusOfPlainError(t *testing.T) {
	if got := Status(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("plain errors must map to 500, got %d", got)
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("allocate: %w", New(CodeInsufficientInventory))
	apiErr, ok := As(wrapped)
	if !ok {
		t.Fatal("expected wrapped API error to unwrap")
	}
	if apiErr.Code != CodeInsufficientInventory {
		t.Fatalf("got code %s", apiErr.Code)
	}
	if !Is(wrapped, CodeInsufficientInventory) {
		t.Fatal("Is must see through wrapping")
	}
}

func TestNewfOverridesDetail(t *testing.T) {
	err := Newf(CodeValidation, "field %s is required", "title")
	if err.Detail != "field title is required" {
		t.Fatalf("got detail %q", err.Detail)
	}
	if err.Error() != "validation: field title is required" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestNewCarriesCatalogDetail(t *testing.T) {
	err := New(CodeTooLateToCancel)
	if err.Detail == "" {
		t.Fatal("expected a default detail from the catalog")
	}
}
