// GO TESTING BASICS:
// 1. Test files MUST end in _test.go. Go's tooling auto-discovers them
// 2. Test functions MUST start with "Test" and take *testing.T as the only param
// 3. Same package as the code being tested (so we can access unexported stuff)
// 4. Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Invalid wraps ErrValidation",
			err:       Invalid([]string{"a", "b"}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("nope"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("log in"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredentials",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredentials,
			wantMatch: true,
		},
		{
			name:      "CorruptStore wraps ErrCorruptStore",
			err:       CorruptStore("posts.json", errors.New("bad json")),
			target:    ErrCorruptStore,
			wantMatch: true,
		},
		{
			name:      "Busy wraps ErrBusy",
			err:       Busy("post store"),
			target:    ErrBusy,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("service: %w", NotFound("post", "x")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("post", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrUnauthenticated",
			err:       Forbidden("nope"),
			target:    ErrUnauthenticated,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("post", "abc123"),
			wantMessage: "post not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "Invalid uses the first problem",
			err:         Invalid([]string{"first", "second"}),
			wantMessage: "first",
		},
		{
			name:        "Invalid with no problems has a fallback",
			err:         Invalid(nil),
			wantMessage: "invalid input",
		},
		{
			name:        "CorruptStore names the path",
			err:         CorruptStore("data/posts.json", errors.New("eof")),
			wantMessage: "store data/posts.json is corrupt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("post", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestInvalidKeepsEveryProblem(t *testing.T) {
	problems := []string{"Title must be at least 3 characters.", "Content must be at least 20 characters."}
	err := Invalid(problems)

	if len(err.Details) != 2 {
		t.Fatalf("Details = %v, want 2 entries", err.Details)
	}

	// The error must own its slice; mutating the input cannot leak in.
	problems[0] = "changed"
	if err.Details[0] == "changed" {
		t.Error("Invalid() aliased the caller's slice")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("username", "username is required")

	if err.Field != "username" {
		t.Errorf("Field = %q, want %q", err.Field, "username")
	}
	if len(err.Details) != 1 || err.Details[0] != "username is required" {
		t.Errorf("Details = %v, want the single message", err.Details)
	}
}
