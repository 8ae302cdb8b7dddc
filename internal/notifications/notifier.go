package notifications

import (
	"context"
	"log/slog"
)

// Notifier glues the selector and dispatcher together: event in,
// notification with deliveries out.
type Notifier struct {
	selector   *Selector
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(selector *Selector, dispatcher *Dispatcher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{selector: selector, dispatcher: dispatcher, logger: logger}
}

// Publish resolves recipients for the draft's type/project with actorID
// excluded, then dispatches. The selector guarantees a non-empty recipient
// set whenever the system has at least one user.
func (n *Notifier) Publish(ctx context.Context, draft Draft, actorID int64) (int64, error) {
	recipients, err := n.selector.Recipients(ctx, Event{
		Type:      draft.Type,
		ProjectID: draft.ProjectID,
		ActorID:   actorID,
	})
	if err != nil {
		return 0, err
	}
	id, err := n.dispatcher.Dispatch(ctx, draft, recipients)
	if err != nil {
		return 0, err
	}
	n.logger.Info("notification published",
		slog.Int64("notification_id", id),
		slog.String("type", string(draft.Type)),
		slog.Int("recipients", len(recipients)))
	return id, nil
}
