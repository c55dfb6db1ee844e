package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", Validation("keyword is required"), "VALIDATION: keyword is required"},
		{"wrapped", Resource("failed to start browser 0", ErrBrowserNotFound), "RESOURCE: failed to start browser 0: chrome browser not found"},
		{"formatted", Validation("maxResults must not be negative, got %d", -3), "VALIDATION: maxResults must not be negative, got -3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("discover: %w", Blocked("https://www.google.com/sorry/index"))

	code, ok := CodeOf(err)
	if !ok || code != CodeBlocked {
		t.Errorf("Expected BLOCKED, got %q (found=%v)", code, ok)
	}
	if !HasCode(err, CodeBlocked) {
		t.Errorf("Expected HasCode to match BLOCKED")
	}
	if HasCode(err, CodeResource) {
		t.Errorf("Expected HasCode not to match RESOURCE")
	}
	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Errorf("Expected no code on a plain error")
	}
}

func TestIsMatchesCodeAndUnderlying(t *testing.T) {
	err := fmt.Errorf("open tab: %w", Resource("pool unavailable", ErrPoolClosed))

	if !errors.Is(err, New(CodeResource, "", nil)) {
		t.Errorf("Expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeBlocked, "", nil)) {
		t.Errorf("Expected errors.Is not to match another code")
	}
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected errors.Is to reach the underlying sentinel")
	}
}

func TestRetryable(t *testing.T) {
	if IsRetryable(Validation("bad")) {
		t.Errorf("Expected validation error not to be retryable")
	}
	if !IsRetryable(fmt.Errorf("nav: %w", New(CodeTimeout, "navigation timed out", nil).WithRetry())) {
		t.Errorf("Expected wrapped retryable error to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Errorf("Expected plain error not to be retryable")
	}
}

func TestBlockedCarriesURL(t *testing.T) {
	err := Blocked("https://example.com/sorry/")
	if got := err.Details["url"]; got != "https://example.com/sorry/" {
		t.Errorf("Expected url detail, got %v", got)
	}
}
