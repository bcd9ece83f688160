package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidState, http.StatusConflict},
		{KindPersistence, http.StatusInternalServerError},
		{KindUpstreamUnavailable, http.StatusBadGateway},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("place order: %w", Persistence("failed to create order", cause))

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable with errors.Is")
	}
	if !Is(err, KindPersistence) {
		t.Errorf("expected persistence kind, got %s", KindOf(err))
	}

	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatal("expected *Error in chain")
	}
	if ae.Reason != "failed to create order" {
		t.Errorf("unexpected reason %q", ae.Reason)
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Error("expected unknown kind for plain errors")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("expected unknown kind for nil")
	}
}

func TestWithDetail(t *testing.T) {
	err := Persistence("failed to fetch complete order", nil).WithDetail("order_id", "o-1")
	if err.Details["order_id"] != "o-1" {
		t.Errorf("expected order_id detail, got %v", err.Details)
	}
	if err.Error() != "failed to fetch complete order" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsCommitted(t *testing.T) {
	plain := Persistence("failed to create order", errors.New("timeout"))
	if IsCommitted(plain) {
		t.Error("expected unmarked error not to be committed")
	}
	marked := fmt.Errorf("place order: %w", Persistence("failed to fetch complete order", nil).MarkCommitted())
	if !IsCommitted(marked) {
		t.Error("expected wrapped marked error to be committed")
	}
	if IsCommitted(nil) || IsCommitted(errors.New("other")) {
		t.Error("expected nil and foreign errors not to be committed")
	}
}
