package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DigestJob mails each user a periodic summary of unread notifications.
type DigestJob struct {
	pool   *pgxpool.Pool
	mailer Sender
	logger *slog.Logger
}

// NewDigestJob constructs the job.
func NewDigestJob(pool *pgxpool.Pool, mailer Sender, logger *slog.Logger) *DigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestJob{pool: pool, mailer: mailer, logger: logger}
}

// Handle processes one notify:digest task.
func (j *DigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MinUnread <= 0 {
		payload.MinUnread = 1
	}

	rows, err := j.pool.Query(ctx, `
		SELECT u.id, u.email, u.display_name, COUNT(*) AS unread
		FROM user_notifications un
		JOIN users u ON u.id = un.user_id
		WHERE NOT un.read AND u.is_active
		GROUP BY u.id, u.email, u.display_name
		HAVING COUNT(*) >= $1
		ORDER BY u.id`, payload.MinUnread)
	if err != nil {
		return err
	}
	defer rows.Close()

	type digestRow struct {
		userID int64
		email  string
		name   string
		unread int64
	}
	var pending []digestRow
	for rows.Next() {
		var d digestRow
		if err := rows.Scan(&d.userID, &d.email, &d.name, &d.unread); err != nil {
			return err
		}
		pending = append(pending, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var sent int
	for _, d := range pending {
		body := fmt.Sprintf("Hi %s,\n\nYou have %d unread notifications waiting in BugTrail.\n", d.name, d.unread)
		if err := j.mailer.Send(ctx, d.email, "[BugTrail] Unread notifications digest", body); err != nil {
			j.logger.Warn("send digest email",
				slog.Int64("user_id", d.userID), slog.Any("error", err))
			continue
		}
		sent++
	}
	j.logger.Info("digest complete", slog.Int("candidates", len(pending)), slog.Int("sent", sent))
	return nil
}
