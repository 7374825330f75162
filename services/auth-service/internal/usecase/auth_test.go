package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
)

func TestSignup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.auth.Signup(ctx, SignupParams{Email: "a@b.com", Password: "Secr3t!23"})
	require.NoError(t, err)

	user := h.store.userByEmail(t, "a@b.com")
	assert.False(t, user.EmailVerified)
	assert.Equal(t, "hashed:Secr3t!23", user.PasswordHash)

	assert.False(t, result.Session.Authorized)
	assert.Equal(t, user.ID, result.Session.UserID)
	assert.NotEqual(t, result.Token, result.Session.ID)
	assert.Equal(t, security.HashToken(result.Token), result.Session.ID)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), result.Session.ExpiresAt, time.Minute)

	code := h.notifier.codes["a@b.com"]
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	verification, err := h.store.GetEmailVerification(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, code, verification.CodeHash)
	assert.True(t, security.VerifyHash(code, verification.CodeHash, h.cfg.Token.VerificationCodeSecret))
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), verification.ExpiresAt, time.Minute)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "a@b.com", "Secr3t!23")

	_, err := h.auth.Signup(context.Background(), SignupParams{Email: "a@b.com", Password: "Other123"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	assert.Len(t, h.store.users, 1)
}

func TestSignup_ConcurrentDuplicate(t *testing.T) {
	h := newHarness(t)
	h.store.createUserErr = repository.ErrConflict

	_, err := h.auth.Signup(context.Background(), SignupParams{Email: "a@b.com", Password: "Secr3t!23"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params SignupParams
		field  string
	}{
		{name: "malformed email", params: SignupParams{Email: "a-at-b", Password: "Secr3t!23"}, field: "email"},
		{name: "missing email", params: SignupParams{Password: "Secr3t!23"}, field: "email"},
		{name: "short password", params: SignupParams{Email: "a@b.com", Password: "S3t"}, field: "password"},
		{name: "password without digit", params: SignupParams{Email: "a@b.com", Password: "Secret!!"}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.auth.Signup(context.Background(), tt.params)
			require.ErrorIs(t, err, ErrValidation)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.NotEmpty(t, validationErr.Fields[tt.field])
			assert.Empty(t, h.store.users)
		})
	}
}

func TestSignup_EmailFailureKeepsRecords(t *testing.T) {
	h := newHarness(t)
	h.notifier.codeErr = errors.New("smtp down")

	_, err := h.auth.Signup(context.Background(), SignupParams{Email: "a@b.com", Password: "Secr3t!23"})
	require.ErrorIs(t, err, ErrEmailService)

	user := h.store.userByEmail(t, "a@b.com")
	_, err = h.store.GetEmailVerification(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Zero(t, h.store.sessionsOf(user.ID))
}

func TestSignup_HashingFailure(t *testing.T) {
	h := newHarness(t)
	h.hasher.err = security.ErrHashing

	_, err := h.auth.Signup(context.Background(), SignupParams{Email: "a@b.com", Password: "Secr3t!23"})
	assert.ErrorIs(t, err, ErrHashing)
	assert.Empty(t, h.store.users)
}

func TestSignin(t *testing.T) {
	ctx := context.Background()

	t.Run("unverified account", func(t *testing.T) {
		h := newHarness(t)
		h.signup(t, "a@b.com", "Secr3t!23")
		user := h.store.userByEmail(t, "a@b.com")
		before := h.store.sessionsOf(user.ID)

		_, err := h.auth.Signin(ctx, SigninParams{Email: "a@b.com", Password: "Secr3t!23"})
		assert.ErrorIs(t, err, ErrAccountNotVerified)
		assert.Equal(t, before, h.store.sessionsOf(user.ID))
	})

	t.Run("verified account", func(t *testing.T) {
		h := newHarness(t)
		h.signup(t, "a@b.com", "Secr3t!23")
		user := h.store.userByEmail(t, "a@b.com")
		h.store.setVerified(user.ID)

		result, err := h.auth.Signin(ctx, SigninParams{Email: "a@b.com", Password: "Secr3t!23"})
		require.NoError(t, err)
		assert.True(t, result.Session.Authorized)
		assert.WithinDuration(t, time.Now().Add(720*time.Hour), result.Session.ExpiresAt, time.Minute)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		h := newHarness(t)
		h.signup(t, "a@b.com", "Secr3t!23")

		_, wrongPassword := h.auth.Signin(ctx, SigninParams{Email: "a@b.com", Password: "Wrong123"})
		_, unknownEmail := h.auth.Signin(ctx, SigninParams{Email: "x@b.com", Password: "Secr3t!23"})
		assert.Equal(t, ErrInvalidCredentials, wrongPassword)
		assert.Equal(t, ErrInvalidCredentials, unknownEmail)
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t)
		h.store.getUserErr = errors.New("connection reset")

		_, err := h.auth.Signin(ctx, SigninParams{Email: "a@b.com", Password: "Secr3t!23"})
		assert.ErrorIs(t, err, ErrDatabase)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("malformed stored hash", func(t *testing.T) {
		h := newHarness(t)
		h.signup(t, "a@b.com", "Secr3t!23")
		user := h.store.userByEmail(t, "a@b.com")
		corrupt := "garbage"
		_, err := h.store.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{PasswordHash: &corrupt})
		require.NoError(t, err)

		_, err = h.auth.Signin(ctx, SigninParams{Email: "a@b.com", Password: "Secr3t!23"})
		assert.ErrorIs(t, err, ErrHashing)
	})
}

func TestGetSessionAndSignout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.signup(t, "a@b.com", "Secr3t!23")

	info, err := h.auth.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", info.User.Email)
	assert.False(t, info.Session.Authorized)

	_, err = h.auth.GetSession(ctx, info.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, h.auth.Signout(ctx, token))
	_, err = h.auth.GetSession(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Signing out twice is harmless.
	assert.NoError(t, h.auth.Signout(ctx, token))
	assert.NoError(t, h.auth.Signout(ctx, ""))
}
