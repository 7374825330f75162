package handler

import (
	"errors"
	"net/http"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/usecase"
)

var errMalformedBody = errors.New("malformed request body")

type errorKind struct {
	status  int
	name    string
	message string
}

// errorTable maps workflow failures to responses. The first match wins.
var errorTable = []struct {
	target error
	kind   errorKind
}{
	{errMalformedBody, errorKind{http.StatusBadRequest, "ValidationError", "malformed request body"}},
	{usecase.ErrValidation, errorKind{http.StatusBadRequest, "ValidationError", "request validation failed"}},
	{usecase.ErrEmailAlreadyExists, errorKind{http.StatusConflict, "EmailAlreadyExists", "an account with this email already exists"}},
	{usecase.ErrInvalidCredentials, errorKind{http.StatusUnauthorized, "InvalidCredentials", "invalid email or password"}},
	{usecase.ErrAccountNotVerified, errorKind{http.StatusForbidden, "AccountNotVerified", "verify your email address before signing in"}},
	{usecase.ErrInvalidCode, errorKind{http.StatusBadRequest, "InvalidCode", "the verification code is invalid or has expired"}},
	{usecase.ErrInvalidToken, errorKind{http.StatusBadRequest, "InvalidToken", "the password reset link is invalid"}},
	{usecase.ErrTokenExpired, errorKind{http.StatusBadRequest, "TokenExpired", "the password reset link has expired"}},
	{usecase.ErrEmailAlreadyVerified, errorKind{http.StatusConflict, "EmailAlreadyVerified", "this email address is already verified"}},
	{usecase.ErrUserNotFound, errorKind{http.StatusNotFound, "NotFound", "user not found"}},
	{usecase.ErrSessionNotFound, errorKind{http.StatusUnauthorized, "Unauthorized", "no active session"}},
	{usecase.ErrTooManyRequests, errorKind{http.StatusTooManyRequests, "TooManyRequests", "too many attempts, try again later"}},
	{usecase.ErrDatabase, errorKind{http.StatusInternalServerError, "DatabaseError", "something went wrong"}},
	{usecase.ErrHashing, errorKind{http.StatusInternalServerError, "HashingError", "something went wrong"}},
	{usecase.ErrEmailService, errorKind{http.StatusInternalServerError, "EmailServiceError", "we could not send the email, try again later"}},
}

var internalError = errorKind{http.StatusInternalServerError, "InternalError", "something went wrong"}

func lookupError(err error) errorKind {
	for _, entry := range errorTable {
		if errors.Is(err, entry.target) {
			return entry.kind
		}
	}
	return internalError
}

// writeError shapes err into the public error body. Internal causes are
// logged here and never written to the client.
func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := lookupError(err)

	if kind.status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).
			Str("request_id", requestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg(kind.name)
	} else {
		h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	body := payload.ErrorResponse{Error: kind.name, Message: kind.message}

	var validationErr *usecase.ValidationError
	if errors.As(err, &validationErr) {
		body.Fields = validationErr.Fields
	}

	writeJSON(w, kind.status, body)
}
