package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHTTP_MapsKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", Validation("select a consultation"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("compose: %w", Validation("bad")), http.StatusBadRequest},
		{"not found", NotFound("appointment", "x"), http.StatusNotFound},
		{"conflict", &ConflictError{Message: "exists", ExistingID: "abc"}, http.StatusConflict},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"collaborator", Collaborator("insert prescription", errors.New("conn reset")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := HTTP(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError, got %T", HTTP(tt.err))
			}
			if he.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, he.Code)
			}
		})
	}
}

func TestHTTP_DeadlineIsGatewayTimeout(t *testing.T) {
	err := Wrap("search appointments", fmt.Errorf("query: %w", context.DeadlineExceeded))
	he, ok := HTTP(err).(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", HTTP(err))
	}
	if he.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", he.Code)
	}
	if !errors.Is(he, context.DeadlineExceeded) {
		t.Error("expected the deadline to stay reachable through the HTTP error")
	}
}

func TestHTTP_Nil(t *testing.T) {
	if HTTP(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestHTTP_ConflictBodyCarriesLocation(t *testing.T) {
	he := HTTP(&ConflictError{Message: "exists", ExistingID: "abc", Location: "/api/v1/consultations/abc"}).(*echo.HTTPError)
	body, ok := he.Message.(map[string]string)
	if !ok {
		t.Fatalf("expected map body, got %T", he.Message)
	}
	if body["existing_id"] != "abc" || body["location"] != "/api/v1/consultations/abc" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCollaborator_NilStaysNil(t *testing.T) {
	if Collaborator("op", nil) != nil {
		t.Error("expected nil")
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("x: %w", Validation("y"))) {
		t.Error("expected wrapped validation error to be detected")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("plain error is not a validation error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Error("expected nil")
	}

	nf := NotFound("appointment", "1")
	if got := Wrap("get appointment", nf); got != nf {
		t.Errorf("expected classified error untouched, got %v", got)
	}

	raw := errors.New("connection reset")
	var co *CollaboratorError
	if !errors.As(Wrap("get appointment", raw), &co) {
		t.Fatal("expected collaborator error")
	}
	if co.Op != "get appointment" || !errors.Is(co, raw) {
		t.Errorf("unexpected collaborator error %+v", co)
	}
}
