package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/usecase"
)

// AuthHandler exposes the auth workflows over HTTP/JSON.
type AuthHandler struct {
	authUsecase              usecase.AuthUsecase
	emailVerificationUsecase usecase.EmailVerificationUsecase
	passwordResetUsecase     usecase.PasswordResetUsecase
	logger                   *zerolog.Logger
	cookieSecure             bool
}

func NewAuthHandler(
	authUsecase usecase.AuthUsecase,
	emailVerificationUsecase usecase.EmailVerificationUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	logger *zerolog.Logger,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		authUsecase:              authUsecase,
		emailVerificationUsecase: emailVerificationUsecase,
		passwordResetUsecase:     passwordResetUsecase,
		logger:                   logger,
		cookieSecure:             cookieSecure,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req payload.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authUsecase.Signup(r.Context(), usecase.SignupParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, payload.MessageResponse{
		Message: "account created, check your email for a verification code",
	})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req payload.SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authUsecase.Signin(r.Context(), usecase.SigninParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "signed in"})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUsecase.Signout(r.Context(), sessionToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "signed out"})
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	info, err := h.authUsecase.GetSession(r.Context(), sessionToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payload.SessionResponse{
		UserID:        info.User.ID.Hex(),
		Email:         info.User.Email,
		EmailVerified: info.User.EmailVerified,
		Authorized:    info.Session.Authorized,
		ExpiresAt:     info.Session.ExpiresAt,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.emailVerificationUsecase.VerifyEmail(r.Context(), usecase.VerifyEmailParams{
		SessionToken: sessionToken(r),
		Email:        req.Email,
		Code:         req.Code,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	// Every session of the user is gone, including the pending one.
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "email verified, please sign in"})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req payload.ResendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.emailVerificationUsecase.ResendVerification(r.Context(), usecase.ResendVerificationParams{
		Email: req.Email,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payload.MessageResponse{
		Message: "if the account is awaiting verification, a new code has been sent",
	})
}
