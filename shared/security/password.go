package security

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/sync/semaphore"
)

// ErrHashing wraps every failure of the password hashing primitive, including
// a stored hash that cannot be decoded.
var ErrHashing = errors.New("password hashing failed")

// PasswordHasher hashes and verifies passwords with Argon2id.
//
// Argon2id is memory hard, so the number of hashes computed at once is bounded
// by a weighted semaphore. Callers over the limit wait (respecting ctx) instead
// of allocating another block of memory.
type PasswordHasher struct {
	config argon2.Config
	sem    *semaphore.Weighted
}

// NewPasswordHasher creates a PasswordHasher that runs at most maxConcurrent
// hashes in parallel. A non-positive value defaults to GOMAXPROCS.
func NewPasswordHasher(maxConcurrent int) *PasswordHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &PasswordHasher{
		config: argon2.DefaultConfig(),
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// HashPassword returns a PHC encoded Argon2id hash with a fresh random salt.
func (h *PasswordHasher) HashPassword(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the encoded hash. A hash
// that cannot be decoded is an error, never a match.
func (h *PasswordHasher) VerifyPassword(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	ok, err := argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrHashing, err)
	}

	return ok, nil
}
