package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/usecase"
)

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req payload.RequestPasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), usecase.RequestPasswordResetParams{
		Email: req.Email,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payload.MessageResponse{
		Message: "if an account exists for this email, a password reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), usecase.ResetPasswordParams{
		Token:    req.Token,
		Password: req.Password,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "password has been reset, please sign in"})
}

func (h *AuthHandler) ValidatePasswordResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "password reset link is valid"})
}
