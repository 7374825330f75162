package security

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(2)
	ctx := context.Background()

	hash, err := hasher.HashPassword(ctx, "Secr3t!23")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!23", hash)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := hasher.VerifyPassword(ctx, "Secr3t!23", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.VerifyPassword(ctx, "Secr3t!24", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_FreshSalt(t *testing.T) {
	hasher := NewPasswordHasher(1)

	first, err := hasher.HashPassword(context.Background(), "same-password")
	require.NoError(t, err)
	second, err := hasher.HashPassword(context.Background(), "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(1)

	ok, err := hasher.VerifyPassword(context.Background(), "whatever", "not-a-phc-string")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHashing))
	assert.False(t, ok)
}

func TestHashPassword_CanceledContext(t *testing.T) {
	hasher := NewPasswordHasher(1)
	require.NoError(t, hasher.sem.Acquire(context.Background(), 1))
	defer hasher.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.HashPassword(ctx, "password")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateToken(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z2-7]{32}$`)
	seen := make(map[string]struct{})

	for range 100 {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Regexp(t, pattern, token)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	hashed := HashToken(token)
	assert.Len(t, hashed, 64)
	assert.NotEqual(t, token, hashed)
	assert.Equal(t, hashed, HashToken(token))
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashToken(""),
	)
}

func TestGenerateNumericCode(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{name: "six digits", length: 6},
		{name: "single digit", length: 1},
		{name: "zero", length: 0, wantErr: true},
		{name: "negative", length: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateNumericCode(tt.length)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCodeLength)
				return
			}

			require.NoError(t, err)
			assert.Len(t, code, tt.length)
			assert.Regexp(t, `^\d+$`, code)
		})
	}
}

func TestHashForStorage(t *testing.T) {
	hash := HashForStorage("123456", "key-a")

	assert.True(t, VerifyHash("123456", hash, "key-a"))
	assert.False(t, VerifyHash("123457", hash, "key-a"))
	assert.False(t, VerifyHash("123456", hash, "key-b"))
	assert.NotEqual(t, hash, HashForStorage("123456", "key-b"))
}
