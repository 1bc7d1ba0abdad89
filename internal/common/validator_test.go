package common

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	URL    string `validate:"required"`
	Prompt string `validate:"required"`
	Note   string
}

func TestGenericEchoValidator_Validate(t *testing.T) {
	v := &GenericEchoValidator{}

	if err := v.Validate(&sampleRequest{URL: "u", Prompt: "p"}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	err := v.Validate(&sampleRequest{Note: "n"})
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", httpErr.Code)
	}
	msg, _ := httpErr.Message.(string)
	if !strings.Contains(msg, "URL (required)") || !strings.Contains(msg, "Prompt (required)") {
		t.Errorf("expected both fields in message, got %q", msg)
	}
}

func TestGenericEchoValidator_NotAStruct(t *testing.T) {
	v := &GenericEchoValidator{}
	err := v.Validate("plain string")
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-struct input, got %v", err)
	}
}
