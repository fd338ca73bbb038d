package errors

import (
	"fmt"
	"testing"
)

func TestAsesorError_Error(t *testing.T) {
	err := &AsesorError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "lead not found: 01J",
	}

	expected := "NOT_FOUND: lead not found: 01J"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "query is required" {
		t.Errorf("Message = %q, want %q", err.Message, "query is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("lead", "01HX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HX" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HX")
	}
	if err.Details["kind"] != "lead" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "lead")
	}
}

func TestNewNotConfigured(t *testing.T) {
	err := NewNotConfigured("crm")

	if err.Code != ErrNotConfigured {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotConfigured)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
}

func TestNewUpstreamFailed(t *testing.T) {
	err := NewUpstreamFailed("llm", fmt.Errorf("connection refused"))

	if err.Code != ErrUpstreamFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrUpstreamFailed)
	}
	if err.Message != "llm request failed: connection refused" {
		t.Errorf("Message = %q", err.Message)
	}

	bare := NewUpstreamFailed("llm", nil)
	if bare.Message != "llm request failed" {
		t.Errorf("Message = %q, want %q", bare.Message, "llm request failed")
	}
}

func TestNewUpstreamStatus(t *testing.T) {
	err := NewUpstreamStatus("crm", 500)

	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["upstream_status"] != 500 {
		t.Errorf("Details[upstream_status] = %v, want 500", err.Details["upstream_status"])
	}
}

func TestNewUpstreamTimeout(t *testing.T) {
	err := NewUpstreamTimeout("crm", 10)

	if err.Code != ErrUpstreamTimeout {
		t.Errorf("Code = %q, want %q", err.Code, ErrUpstreamTimeout)
	}
	if err.Message != "crm did not respond within 10s" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewInvalidRequest("x"), ErrInvalidRequest, true},
		{"different code", NewInvalidRequest("x"), ErrNotFound, false},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
