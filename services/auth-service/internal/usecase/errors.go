package usecase

import (
	"errors"
	"fmt"

	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// Workflow failures. Every error returned by a usecase wraps exactly one of these.
var (
	ErrValidation           = errors.New("validation failed")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotVerified   = errors.New("account not verified")
	ErrInvalidCode          = errors.New("invalid verification code")
	ErrInvalidToken         = errors.New("invalid password reset token")
	ErrTokenExpired         = errors.New("password reset token has expired")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrTooManyRequests      = errors.New("too many requests")

	// Internal failures. They wrap the cause, which must not reach the client.
	ErrDatabase     = errors.New("database error")
	ErrHashing      = errors.New("hashing error")
	ErrEmailService = errors.New("email service error")
)

// ValidationError reports which request fields were rejected and why.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func databaseError(err error) error {
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}

func hashingError(err error) error {
	return fmt.Errorf("%w: %w", ErrHashing, err)
}

func emailServiceError(err error) error {
	return fmt.Errorf("%w: %w", ErrEmailService, err)
}

// transactionError passes workflow failures raised inside a transaction through
// and reports anything else, such as a failed commit, as ErrDatabase.
func transactionError(err error) error {
	for _, target := range []error{
		ErrDatabase,
		ErrUserNotFound,
		ErrEmailAlreadyVerified,
		ErrInvalidCode,
		ErrInvalidToken,
	} {
		if errors.Is(err, target) {
			return err
		}
	}

	return databaseError(err)
}
