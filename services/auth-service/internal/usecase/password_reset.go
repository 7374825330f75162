package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/shared/auth"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// PasswordResetUsecase defines the business logic for password reset operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset emails a reset link. It succeeds for unknown emails
	// too, so the response never reveals whether an account exists.
	RequestPasswordReset(ctx context.Context, params RequestPasswordResetParams) error

	// ResetPassword consumes the reset request behind token, sets the new
	// password and ends every session of the user.
	ResetPassword(ctx context.Context, params ResetPasswordParams) error

	// ValidatePasswordResetToken checks a token without consuming it.
	ValidatePasswordResetToken(ctx context.Context, token string) error
}

type RequestPasswordResetParams struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordParams struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

type passwordResetUsecase struct {
	tx                       repository.Transactor
	userRepo                 repository.UserRepository
	passwordResetRequestRepo repository.PasswordResetRequestRepository
	sessionRepo              repository.SessionRepository
	jwtAuth                  *auth.JWTAuthenticator
	hasher                   PasswordHasher
	notifier                 Notifier
	requestLimiter           Limiter
	validator                *validation.Validator
	authServiceCfg           *config.AuthServiceConfig
	now                      func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
// requestLimiter bounds reset emails per address and may be nil.
func NewPasswordResetUsecase(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	passwordResetRequestRepo repository.PasswordResetRequestRepository,
	sessionRepo repository.SessionRepository,
	jwtAuth *auth.JWTAuthenticator,
	hasher PasswordHasher,
	notifier Notifier,
	requestLimiter Limiter,
	validator *validation.Validator,
	authServiceCfg *config.AuthServiceConfig,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		tx:                       tx,
		userRepo:                 userRepo,
		passwordResetRequestRepo: passwordResetRequestRepo,
		sessionRepo:              sessionRepo,
		jwtAuth:                  jwtAuth,
		hasher:                   hasher,
		notifier:                 notifier,
		requestLimiter:           requestLimiter,
		validator:                validator,
		authServiceCfg:           authServiceCfg,
		now:                      time.Now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, params RequestPasswordResetParams) error {
	if err := validate(u.validator, params); err != nil {
		return err
	}

	if err := checkLimit(ctx, u.requestLimiter, "reset:"+params.Email); err != nil {
		return err
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return databaseError(err)
	}

	// Only the hash of the token is stored; the token itself travels inside a signed reference.
	token, err := security.GenerateToken()
	if err != nil {
		return hashingError(err)
	}

	now := u.now()
	request, err := u.passwordResetRequestRepo.CreatePasswordResetRequest(ctx, &model.PasswordResetRequest{
		ID:        security.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(u.authServiceCfg.Token.PasswordResetTokenExpiresIn),
	})
	if err != nil {
		return databaseError(err)
	}

	reference, err := u.jwtAuth.IssueReference(token, user.ID.Hex(), now, request.ExpiresAt)
	if err != nil {
		return hashingError(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, u.authServiceCfg.Mail.Timeout)
	defer cancel()

	if err := u.notifier.SendPasswordReset(sendCtx, user.Email, reference); err != nil {
		return emailServiceError(err)
	}

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	if err := validate(u.validator, params); err != nil {
		return err
	}

	request, err := u.lookupRequest(ctx, params.Token)
	if err != nil {
		return err
	}

	passwordHash, err := u.hasher.HashPassword(ctx, params.Password)
	if err != nil {
		return hashingError(err)
	}

	err = u.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.userRepo.UpdateUser(ctx, request.UserID.Hex(), repository.UpdateUserParams{
			PasswordHash: &passwordHash,
		}); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return databaseError(err)
		}

		// A concurrent reset that consumed the request first wins.
		if err := u.passwordResetRequestRepo.RemovePasswordResetRequest(ctx, request.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return databaseError(err)
		}

		if _, err := u.sessionRepo.InvalidateAllSessions(ctx, request.UserID); err != nil {
			return databaseError(err)
		}

		return nil
	})
	if err != nil {
		return transactionError(err)
	}

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	_, err := u.lookupRequest(ctx, token)
	return err
}

// lookupRequest verifies the signed reference and loads the live request it points to.
func (u *passwordResetUsecase) lookupRequest(ctx context.Context, reference string) (*model.PasswordResetRequest, error) {
	token, err := u.jwtAuth.ParseReference(reference)
	if err != nil {
		if errors.Is(err, auth.ErrReferenceExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	request, err := u.passwordResetRequestRepo.GetPasswordResetRequest(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, databaseError(err)
	}

	if request.Expired(u.now()) {
		return nil, ErrTokenExpired
	}

	return request, nil
}
