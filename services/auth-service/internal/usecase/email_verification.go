package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/model"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

// verificationCodeLength must match the len rule on VerifyEmailParams.Code.
const verificationCodeLength = 6

// EmailVerificationUsecase defines the email verification use cases.
type EmailVerificationUsecase interface {
	// VerifyEmail checks the emailed code, marks the user verified, consumes the
	// challenge and ends every session of the user.
	VerifyEmail(ctx context.Context, params VerifyEmailParams) (*model.User, error)

	// ResendVerification issues a fresh code. Unknown and already verified
	// emails succeed without sending anything.
	ResendVerification(ctx context.Context, params ResendVerificationParams) error
}

// VerifyEmailParams identifies the user by the pending session token, or by
// Email when no session is presented.
type VerifyEmailParams struct {
	SessionToken string `json:"-"`
	Email        string `json:"email" validate:"omitempty,email"`
	Code         string `json:"code"  validate:"required,len=6,digits"`
}

type ResendVerificationParams struct {
	Email string `json:"email" validate:"required,email"`
}

type emailVerificationUsecase struct {
	tx                    repository.Transactor
	userRepo              repository.UserRepository
	emailVerificationRepo repository.EmailVerificationRepository
	sessionRepo           repository.SessionRepository
	issuer                *verificationIssuer
	notifier              Notifier
	attemptLimiter        Limiter
	requestLimiter        Limiter
	validator             *validation.Validator
	logger                *zerolog.Logger
	authServiceCfg        *config.AuthServiceConfig
	now                   func() time.Time
}

// NewEmailVerificationUsecase creates a new EmailVerificationUsecase. attemptLimiter
// bounds code guesses per user and requestLimiter bounds resends per email;
// either may be nil.
func NewEmailVerificationUsecase(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	emailVerificationRepo repository.EmailVerificationRepository,
	sessionRepo repository.SessionRepository,
	notifier Notifier,
	attemptLimiter Limiter,
	requestLimiter Limiter,
	validator *validation.Validator,
	logger *zerolog.Logger,
	authServiceCfg *config.AuthServiceConfig,
) EmailVerificationUsecase {
	return &emailVerificationUsecase{
		tx:                    tx,
		userRepo:              userRepo,
		emailVerificationRepo: emailVerificationRepo,
		sessionRepo:           sessionRepo,
		issuer:                newVerificationIssuer(emailVerificationRepo, notifier, authServiceCfg),
		notifier:              notifier,
		attemptLimiter:        attemptLimiter,
		requestLimiter:        requestLimiter,
		validator:             validator,
		logger:                logger,
		authServiceCfg:        authServiceCfg,
		now:                   time.Now,
	}
}

func (u *emailVerificationUsecase) VerifyEmail(ctx context.Context, params VerifyEmailParams) (*model.User, error) {
	if err := validate(u.validator, params); err != nil {
		return nil, err
	}

	user, err := u.resolveUser(ctx, params)
	if err != nil {
		return nil, err
	}

	limitKey := user.ID.Hex()
	if err := checkLimit(ctx, u.attemptLimiter, limitKey); err != nil {
		return nil, err
	}

	verification, err := u.emailVerificationRepo.GetEmailVerification(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, databaseError(err)
	}

	// An expired challenge may outlive its expiry until the TTL monitor runs.
	if verification.Expired(u.now()) {
		return nil, ErrInvalidCode
	}

	if !security.VerifyHash(params.Code, verification.CodeHash, u.authServiceCfg.Token.VerificationCodeSecret) {
		return nil, ErrInvalidCode
	}

	var verified *model.User
	err = u.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		verified, err = u.userRepo.VerifyUser(ctx, user.ID.Hex())
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrUserNotFound
			case errors.Is(err, repository.ErrConflict):
				return ErrEmailAlreadyVerified
			}
			return databaseError(err)
		}

		// Losing this delete to a concurrent request means the code was already used.
		if err := u.emailVerificationRepo.RemoveEmailVerification(ctx, verification.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidCode
			}
			return databaseError(err)
		}

		count, err := u.sessionRepo.InvalidateAllSessions(ctx, user.ID)
		if err != nil {
			return databaseError(err)
		}
		u.logger.Debug().Str("user_id", user.ID.Hex()).Int64("sessions", count).Msg("sessions invalidated")

		return nil
	})
	if err != nil {
		return nil, transactionError(err)
	}

	if u.attemptLimiter != nil {
		if err := u.attemptLimiter.Reset(ctx, limitKey); err != nil {
			u.logger.Warn().Err(err).Str("user_id", limitKey).Msg("failed to reset verification attempts")
		}
	}

	// The user is verified at this point, so a failed confirmation is only logged.
	sendCtx, cancel := context.WithTimeout(ctx, u.authServiceCfg.Mail.Timeout)
	defer cancel()
	if err := u.notifier.SendVerificationConfirmation(sendCtx, verified.Email); err != nil {
		u.logger.Warn().Err(err).Str("user_id", limitKey).Msg("failed to send verification confirmation")
	}

	return verified, nil
}

func (u *emailVerificationUsecase) ResendVerification(ctx context.Context, params ResendVerificationParams) error {
	if err := validate(u.validator, params); err != nil {
		return err
	}

	if err := checkLimit(ctx, u.requestLimiter, "resend:"+params.Email); err != nil {
		return err
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return databaseError(err)
	}

	if user.EmailVerified {
		return nil
	}

	return u.issuer.issue(ctx, user)
}

func (u *emailVerificationUsecase) resolveUser(ctx context.Context, params VerifyEmailParams) (*model.User, error) {
	if params.SessionToken != "" {
		session, err := u.sessionRepo.GetSessionByToken(ctx, params.SessionToken)
		switch {
		case err == nil:
			user, err := u.userRepo.GetUser(ctx, session.UserID.Hex())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrSessionNotFound
				}
				return nil, databaseError(err)
			}
			return user, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, databaseError(err)
		}
	}

	if params.Email == "" {
		return nil, ErrSessionNotFound
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, databaseError(err)
	}

	return user, nil
}

// verificationIssuer creates a verification challenge and emails its code.
// Signup and resend share it.
type verificationIssuer struct {
	repo     repository.EmailVerificationRepository
	notifier Notifier
	cfg      *config.AuthServiceConfig
	now      func() time.Time
}

func newVerificationIssuer(
	repo repository.EmailVerificationRepository,
	notifier Notifier,
	cfg *config.AuthServiceConfig,
) *verificationIssuer {
	return &verificationIssuer{repo: repo, notifier: notifier, cfg: cfg, now: time.Now}
}

func (i *verificationIssuer) issue(ctx context.Context, user *model.User) error {
	code, err := security.GenerateNumericCode(verificationCodeLength)
	if err != nil {
		return hashingError(err)
	}

	if _, err := i.repo.CreateEmailVerification(ctx, &model.EmailVerification{
		UserID:    user.ID,
		Email:     user.Email,
		CodeHash:  security.HashForStorage(code, i.cfg.Token.VerificationCodeSecret),
		ExpiresAt: i.now().Add(i.cfg.Token.EmailVerificationExpiresIn),
	}); err != nil {
		return databaseError(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, i.cfg.Mail.Timeout)
	defer cancel()

	if err := i.notifier.SendVerificationCode(sendCtx, user.Email, code); err != nil {
		return emailServiceError(err)
	}

	return nil
}
