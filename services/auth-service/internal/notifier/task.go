package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
)

const (
	QueueMail         = "mail"
	TaskTypeSendEmail = "email:send"
)

// NewSendEmailTask wraps a rendered email in an asynq task.
func NewSendEmailTask(email mailer.Email) (*asynq.Task, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, payload), nil
}

// NewSendEmailHandler returns the worker handler for TaskTypeSendEmail. Each
// delivery attempt is bounded by timeout; a failed attempt is retried by asynq.
func NewSendEmailHandler(sender Sender, timeout time.Duration, logger *zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var email mailer.Email
		if err := json.Unmarshal(t.Payload(), &email); err != nil {
			logger.Error().Err(err).Msg("dropping malformed email task")
			return fmt.Errorf("malformed email task: %w", asynq.SkipRetry)
		}

		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := sender.Send(sendCtx, email); err != nil {
			logger.Warn().Err(err).Str("subject", email.Subject).Msg("email delivery failed")
			return err
		}

		return nil
	}
}
