package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyEmail delivers a dispatched notification by email.
	TaskTypeNotifyEmail = "notify:email"
	// TaskTypeDigest mails each user a summary of unread notifications.
	TaskTypeDigest = "notify:digest"
)

// NotifyEmailPayload identifies one notification and the recipients whose
// delivery rows were just created.
type NotifyEmailPayload struct {
	NotificationID int64   `json:"notification_id"`
	UserIDs        []int64 `json:"user_ids"`
}

// NewNotifyEmailTask constructs an Asynq task.
func NewNotifyEmailTask(payload NotifyEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyEmail, data), nil
}

// DigestPayload bounds the digest scan. MinUnread filters out users with
// fewer unread notifications than the threshold.
type DigestPayload struct {
	MinUnread int `json:"min_unread"`
}

// NewDigestTask constructs an Asynq task.
func NewDigestTask(payload DigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDigest, data), nil
}
