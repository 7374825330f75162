// Package notifier delivers the verification and password reset emails,
// either directly over SMTP or through an asynq queue drained by the worker.
package notifier

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
)

// Sender is implemented by *mailer.Mailer.
type Sender interface {
	Send(ctx context.Context, email mailer.Email) error
}

// Enqueuer is implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailNotifier sends every email synchronously.
type EmailNotifier struct {
	composer *Composer
	sender   Sender
}

func NewEmailNotifier(composer *Composer, sender Sender) *EmailNotifier {
	return &EmailNotifier{composer: composer, sender: sender}
}

func (n *EmailNotifier) SendVerificationCode(ctx context.Context, to, code string) error {
	email, err := n.composer.VerificationCode(to, code)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email)
}

func (n *EmailNotifier) SendVerificationConfirmation(ctx context.Context, to string) error {
	email, err := n.composer.VerificationConfirmation(to)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email)
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, to, reference string) error {
	email, err := n.composer.PasswordReset(to, reference)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email)
}

// QueueNotifier hands rendered emails to the worker. A successful call means
// the email was queued, not delivered.
type QueueNotifier struct {
	composer *Composer
	enqueuer Enqueuer
	maxRetry int
	logger   *zerolog.Logger
}

func NewQueueNotifier(composer *Composer, enqueuer Enqueuer, maxRetry int, logger *zerolog.Logger) *QueueNotifier {
	return &QueueNotifier{
		composer: composer,
		enqueuer: enqueuer,
		maxRetry: maxRetry,
		logger:   logger,
	}
}

func (n *QueueNotifier) SendVerificationCode(ctx context.Context, to, code string) error {
	email, err := n.composer.VerificationCode(to, code)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, email)
}

func (n *QueueNotifier) SendVerificationConfirmation(ctx context.Context, to string) error {
	email, err := n.composer.VerificationConfirmation(to)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, email)
}

func (n *QueueNotifier) SendPasswordReset(ctx context.Context, to, reference string) error {
	email, err := n.composer.PasswordReset(to, reference)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, email)
}

func (n *QueueNotifier) enqueue(ctx context.Context, email mailer.Email) error {
	task, err := NewSendEmailTask(email)
	if err != nil {
		return err
	}

	info, err := n.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(n.maxRetry),
		asynq.TaskID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue email: %w", err)
	}

	n.logger.Debug().Str("task_id", info.ID).Str("subject", email.Subject).Msg("email queued")

	return nil
}
