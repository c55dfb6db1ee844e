package reqctx

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithRequestContext(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "abc-123")
	if got := ID(ctx); got != "abc-123" {
		t.Errorf("Expected abc-123, got %s", got)
	}

	ctx = WithRequestContext(context.Background(), "")
	if got := ID(ctx); len(got) != 16 {
		t.Errorf("Expected generated 16 char id, got %q", got)
	}

	if got := ID(context.Background()); got != "" {
		t.Errorf("Expected empty id outside a request, got %q", got)
	}
}

func TestNewRequestError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRequestError(WithRequestContext(context.Background(), "req1"), cause)
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to cause")
	}
	if !strings.HasPrefix(err.Error(), "[req1]") {
		t.Errorf("Unexpected message %s", err.Error())
	}
}
