// GO TESTING BASICS:
// 1. Test files MUST end in _test.go; Go's tooling auto-discovers them
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
		{"NotFound wraps ErrNotFound", NotFound("user", "abc123"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("email", "email is required"), ErrValidation, true},
		{"AlreadyExists wraps ErrConflict", AlreadyExists("Email already exists"), ErrConflict, true},
		{"Unauthorized wraps ErrUnauthorized", Unauthorized(), ErrUnauthorized, true},
		{"NoActiveChallenge", NoActiveChallenge(), ErrNoActiveChallenge, true},
		{"ChallengeNotFound", ChallengeNotFound("c1"), ErrChallengeNotFound, true},
		{"SubmissionsClosed", SubmissionsClosed(), ErrSubmissionsClosed, true},
		{"AlreadySubmittedToday", AlreadySubmittedToday(), ErrAlreadySubmittedToday, true},
		{"wrapped with fmt.Errorf", fmt.Errorf("recording: %w", AlreadySubmittedToday()), ErrAlreadySubmittedToday, true},
		{"NotFound does NOT match ErrValidation", NotFound("user", "abc123"), ErrValidation, false},
		{"ChallengeNotFound does NOT match ErrNotFound", ChallengeNotFound("c1"), ErrNotFound, false},
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
		{"NotFound message includes resource and id", NotFound("user", "abc123"), "user not found with id abc123"},
		{"Unauthorized", Unauthorized(), "Invalid admin key"},
		{"AlreadyExists uses custom message", AlreadyExists("Email already exists"), "Email already exists"},
		{"AlreadySubmittedToday", AlreadySubmittedToday(), "Task already submitted today"},
		{"NoActiveChallenge", NoActiveChallenge(), "No active challenge found"},
		{"InvalidCredentials", InvalidCredentials(), "Invalid credentials, please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ValidationFailed("x", "bad"), "validation_error"},
		{NotFound("user", "1"), "not_found"},
		{ChallengeNotFound("1"), "challenge_not_found"},
		{NoActiveChallenge(), "no_active_challenge"},
		{Unauthorized(), "unauthorized"},
		{AlreadyExists("dup"), "already_exists"},
		{SubmissionsClosed(), "submissions_closed"},
		{AlreadySubmittedToday(), "already_submitted_today"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "abc123")
	if err.Unwrap() != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
