package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", NotFound("User not found"), http.StatusNotFound, "User not found"},
		{"wrapped forbidden", fmt.Errorf("send: %w", Forbidden("not a member")), http.StatusForbidden, "not a member"},
		{"internal hides cause", Internal(errors.New("connection refused")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.status {
				t.Fatalf("StatusOf = %d, want %d", got, tt.status)
			}
			if got := MessageOf(tt.err); got != tt.message {
				t.Fatalf("MessageOf = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	if !errors.Is(Internal(cause), cause) {
		t.Fatal("expected Internal to wrap its cause")
	}
}
