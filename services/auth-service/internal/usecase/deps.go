package usecase

import (
	"context"
	"errors"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/limiter"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// Notifier delivers the emails of the verification and reset workflows.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendVerificationConfirmation(ctx context.Context, to string) error
	SendPasswordReset(ctx context.Context, to, reference string) error
}

// PasswordHasher is implemented by security.PasswordHasher.
type PasswordHasher interface {
	HashPassword(ctx context.Context, password string) (string, error)
	VerifyPassword(ctx context.Context, password, encodedHash string) (bool, error)
}

// Limiter counts attempts per key. Check returns limiter.ErrRateLimited once
// the key is over its budget. Implemented by limiter.FixedWindow.
type Limiter interface {
	Check(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

func checkLimit(ctx context.Context, l Limiter, key string) error {
	if l == nil {
		return nil
	}

	if err := l.Check(ctx, key); err != nil {
		if errors.Is(err, limiter.ErrRateLimited) {
			return ErrTooManyRequests
		}
		return databaseError(err)
	}

	return nil
}

func validate(v *validation.Validator, params any) error {
	if err := v.Struct(params); err != nil {
		var fields validation.FieldErrors
		if errors.As(err, &fields) {
			return &ValidationError{Fields: fields}
		}
		return err
	}

	return nil
}
