package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// AuthUsecase defines the signup, signin and session use cases.
type AuthUsecase interface {
	// Signup registers an unverified user, emails a verification code and opens
	// an unauthorized session that identifies the user during verification.
	Signup(ctx context.Context, params SignupParams) (*SessionResult, error)

	// Signin opens an authorized session for a verified user.
	Signin(ctx context.Context, params SigninParams) (*SessionResult, error)

	// Signout ends the session identified by token. Unknown tokens are ignored.
	Signout(ctx context.Context, token string) error

	// GetSession resolves a bearer token to its session and user.
	GetSession(ctx context.Context, token string) (*SessionInfo, error)
}

// SignupParams defines the parameters for user registration.
type SignupParams struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

// SigninParams defines the parameters for user login. The password policy is
// not checked here so a failed signin never hints at it.
type SigninParams struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// SessionResult carries a newly created session and its plaintext token.
type SessionResult struct {
	User    *model.User
	Session *model.Session
	Token   string
}

// SessionInfo is a resolved session with its owner.
type SessionInfo struct {
	User    *model.User
	Session *model.Session
}

type authUsecase struct {
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	verifications  *verificationIssuer
	hasher         PasswordHasher
	validator      *validation.Validator
	authServiceCfg *config.AuthServiceConfig
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	emailVerificationRepo repository.EmailVerificationRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	notifier Notifier,
	validator *validation.Validator,
	authServiceCfg *config.AuthServiceConfig,
) AuthUsecase {
	return &authUsecase{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		verifications:  newVerificationIssuer(emailVerificationRepo, notifier, authServiceCfg),
		hasher:         hasher,
		validator:      validator,
		authServiceCfg: authServiceCfg,
	}
}

func (u *authUsecase) Signup(ctx context.Context, params SignupParams) (*SessionResult, error) {
	if err := validate(u.validator, params); err != nil {
		return nil, err
	}

	exists, err := u.userRepo.CheckIfExists(ctx, params.Email)
	if err != nil {
		return nil, databaseError(err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := u.hasher.HashPassword(ctx, params.Password)
	if err != nil {
		return nil, hashingError(err)
	}

	// The unique index still decides a race between two signups.
	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        params.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, databaseError(err)
	}

	// A failed send leaves the user and the challenge in place; the code can be resent.
	if err := u.verifications.issue(ctx, user); err != nil {
		return nil, err
	}

	return u.createSession(ctx, user, false)
}

func (u *authUsecase) Signin(ctx context.Context, params SigninParams) (*SessionResult, error) {
	if err := validate(u.validator, params); err != nil {
		return nil, err
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, databaseError(err)
	}

	ok, err := u.hasher.VerifyPassword(ctx, params.Password, user.PasswordHash)
	if err != nil {
		return nil, hashingError(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrAccountNotVerified
	}

	return u.createSession(ctx, user, true)
}

func (u *authUsecase) Signout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := u.sessionRepo.DeleteSession(ctx, token); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return databaseError(err)
	}

	return nil
}

func (u *authUsecase) GetSession(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := u.sessionRepo.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, databaseError(err)
	}

	user, err := u.userRepo.GetUser(ctx, session.UserID.Hex())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, databaseError(err)
	}

	return &SessionInfo{User: user, Session: session}, nil
}

func (u *authUsecase) createSession(ctx context.Context, user *model.User, authorized bool) (*SessionResult, error) {
	session, token, err := u.sessionRepo.CreateSession(ctx, user.ID, authorized, u.sessionLifetime(authorized))
	if err != nil {
		return nil, databaseError(err)
	}

	return &SessionResult{User: user, Session: session, Token: token}, nil
}

func (u *authUsecase) sessionLifetime(authorized bool) time.Duration {
	if authorized {
		return u.authServiceCfg.Token.AuthorizedSessionExpiresIn
	}
	return u.authServiceCfg.Token.UnauthorizedSessionExpiresIn
}
