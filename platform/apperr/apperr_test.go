package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("lead not found"), http.StatusNotFound},
		{Validation("invalid phone"), http.StatusBadRequest},
		{Configuration("no recipient"), http.StatusInternalServerError},
		{Transport("send failed", errors.New("smtp down")), http.StatusBadGateway},
		{Upstream("analyzer failed", errors.New("timeout")), http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := Transport("email transport failed", errors.New("connection refused"))
	wrapped := fmt.Errorf("dispatch: %w", base)

	if !Is(wrapped, KindTransport) {
		t.Fatalf("expected wrapped error to carry transport kind, got %s", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected plain error to have unknown kind")
	}
}
