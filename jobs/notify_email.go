package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bugtrail/bugtrail/internal/notifications"
	"github.com/bugtrail/bugtrail/internal/shared"
)

// NotificationReader loads dispatched notifications for mailing.
type NotificationReader interface {
	GetNotification(ctx context.Context, id int64) (notifications.Notification, error)
}

// EmailDirectory resolves user IDs to mail addresses.
type EmailDirectory interface {
	Email(ctx context.Context, id int64) (string, error)
}

// NotifyEmailJob mails a dispatched notification to its recipients.
type NotifyEmailJob struct {
	store  NotificationReader
	users  EmailDirectory
	mailer Sender
	logger *slog.Logger
}

// NewNotifyEmailJob constructs the job.
func NewNotifyEmailJob(store NotificationReader, users EmailDirectory, mailer Sender, logger *slog.Logger) *NotifyEmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyEmailJob{store: store, users: users, mailer: mailer, logger: logger}
}

// Handle processes one notify:email task. Per-recipient failures are logged
// and skipped so one dead address cannot starve the rest; a vanished
// notification drops the task without retry.
func (j *NotifyEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotifyEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	n, err := j.store.GetNotification(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			j.logger.Warn("notification gone before mailing",
				slog.Int64("notification_id", payload.NotificationID))
			return asynq.SkipRetry
		}
		return err
	}

	subject := fmt.Sprintf("[BugTrail] %s", n.Title)
	body := n.Message
	if n.CreatedBy != "" {
		body = fmt.Sprintf("%s\n\nTriggered by %s.", n.Message, n.CreatedBy)
	}

	var failed int
	for _, userID := range payload.UserIDs {
		addr, err := j.users.Email(ctx, userID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				j.logger.Warn("resolve recipient email",
					slog.Int64("user_id", userID), slog.Any("error", err))
				failed++
			}
			continue
		}
		if err := j.mailer.Send(ctx, addr, subject, body); err != nil {
			j.logger.Warn("send notification email",
				slog.Int64("user_id", userID), slog.Any("error", err))
			failed++
		}
	}
	if failed == len(payload.UserIDs) && failed > 0 {
		return fmt.Errorf("notify email: all %d sends failed", failed)
	}
	return nil
}
