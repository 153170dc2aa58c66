package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("Validation Error")
	ErrConflict              = errors.New("conflict")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNoActiveChallenge     = errors.New("no active challenge")
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrSubmissionsClosed     = errors.New("submissions closed")
	ErrAlreadySubmittedToday = errors.New("already submitted today")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, for lookups where
// echoing the key back (an email, a unique code) reads badly.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// AlreadyExists is a conflict with a message meant for display, e.g.
// "Email already exists".
func AlreadyExists(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized is returned for a wrong or missing admin key.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid admin key",
	}
}

// InvalidCredentials is returned by login for an unknown email or a wrong
// password alike.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid credentials, please try again",
	}
}

func NoActiveChallenge() *AppError {
	return &AppError{
		Err:     ErrNoActiveChallenge,
		Message: "No active challenge found",
	}
}

func ChallengeNotFound(id string) *AppError {
	return &AppError{
		Err:     ErrChallengeNotFound,
		Message: "Challenge not found",
		Field:   id,
	}
}

func SubmissionsClosed() *AppError {
	return &AppError{
		Err:     ErrSubmissionsClosed,
		Message: "This challenge does not accept response at the moment.",
	}
}

func AlreadySubmittedToday() *AppError {
	return &AppError{
		Err:     ErrAlreadySubmittedToday,
		Message: "Task already submitted today",
	}
}

// Kind returns a short machine-readable name for err's category, or
// "internal_error" when err is not one of ours.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNoActiveChallenge):
		return "no_active_challenge"
	case errors.Is(err, ErrChallengeNotFound):
		return "challenge_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "already_exists"
	case errors.Is(err, ErrSubmissionsClosed):
		return "submissions_closed"
	case errors.Is(err, ErrAlreadySubmittedToday):
		return "already_submitted_today"
	}
	return "internal_error"
}
