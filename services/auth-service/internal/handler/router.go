package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/payload"
)

// RouterConfig collects what the HTTP router needs.
type RouterConfig struct {
	Handler           *AuthHandler
	Logger            *zerolog.Logger
	RequestTimeout    time.Duration
	RequestsPerMinute int
	Production        bool

	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Production,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(secureMiddleware.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			if err := cfg.Ping(r.Context()); err != nil {
				cfg.Logger.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, payload.MessageResponse{Message: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, payload.MessageResponse{Message: "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.Limit(
				cfg.RequestsPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, payload.ErrorResponse{
						Error:   "TooManyRequests",
						Message: "too many requests, try again later",
					})
				}),
			))
		}

		h := cfg.Handler
		r.Post("/signup", h.Signup)
		r.Post("/signin", h.Signin)
		r.Post("/signout", h.Signout)
		r.Get("/session", h.Session)

		r.Post("/email-verification", h.VerifyEmail)
		r.Post("/email-verification/resend", h.ResendVerification)

		r.Post("/password-reset", h.RequestPasswordReset)
		r.Post("/password-reset/complete", h.ResetPassword)
		r.Get("/password-reset/{token}", h.ValidatePasswordResetToken)
	})

	return r
}
