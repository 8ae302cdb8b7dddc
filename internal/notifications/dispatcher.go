package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bugtrail/bugtrail/internal/observability"
	"github.com/bugtrail/bugtrail/internal/platform/db"
)

// ErrNoRecipients indicates a dispatch call with an empty recipient list.
// The selector's fallback guarantee makes this unreachable for callers that
// go through it; hitting it means a configuration bug worth surfacing.
var ErrNoRecipients = errors.New("notifications: dispatch requires at least one recipient")

// DispatchStorePort is the transactional store surface the dispatcher needs.
type DispatchStorePort interface {
	DispatchTx(ctx context.Context, fn func(DispatchTx) error) error
}

// EmailEnqueuer hands delivered notifications to the background mailer.
// Enqueueing is fire-and-forget; failures never affect the dispatch result.
type EmailEnqueuer interface {
	EnqueueNotificationEmail(ctx context.Context, notificationID int64, userIDs []int64) error
}

// Dispatcher turns one event into a notification record plus per-recipient
// delivery rows, atomically.
type Dispatcher struct {
	store   DispatchStorePort
	compat  *TypeCompat
	emails  EmailEnqueuer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewDispatcher constructs a Dispatcher. emails and metrics may be nil.
func NewDispatcher(store DispatchStorePort, compat *TypeCompat, emails EmailEnqueuer, metrics *observability.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, compat: compat, emails: emails, metrics: metrics, logger: logger}
}

// Dispatch writes the notification and one delivery row per recipient in a
// single transaction.
//
// Per-recipient soft failures (recipient deleted, delivery already present)
// are tolerated inside the transaction; a hard failure rolls everything
// back, notification row included. A commit with zero deliveries is legal —
// the event happened and stays auditable — but is logged as critical.
func (d *Dispatcher) Dispatch(ctx context.Context, draft Draft, recipients []int64) (int64, error) {
	if len(recipients) == 0 {
		d.countDispatch(draft.Type, "rejected")
		return 0, ErrNoRecipients
	}

	typ, err := d.compat.Resolve(draft.Type)
	if err != nil {
		d.countDispatch(draft.Type, "error")
		return 0, err
	}
	if typ != draft.Type {
		d.logger.Warn("notification type not migrated, using fallback",
			slog.String("preferred", string(draft.Type)), slog.String("fallback", string(typ)))
	}

	var (
		notificationID int64
		delivered      []int64
		duplicates     int
		missing        []int64
	)
	err = d.store.DispatchTx(ctx, func(tx DispatchTx) error {
		id, err := tx.CreateNotification(ctx, draft, typ)
		if err != nil {
			return err
		}
		notificationID = id
		for _, userID := range recipients {
			outcome, err := tx.AddDelivery(ctx, id, userID)
			if err != nil {
				return err
			}
			switch outcome {
			case OutcomeDelivered:
				delivered = append(delivered, userID)
			case OutcomeDuplicate:
				duplicates++
			case OutcomeMissingUser:
				missing = append(missing, userID)
			}
			d.countDelivery(outcome)
		}
		return nil
	})
	if err != nil {
		d.countDispatch(draft.Type, "error")
		// The per-recipient pre-checks keep constraint errors out of the
		// transaction; one surfacing here means the checks raced a
		// concurrent write, so name the constraint in the log.
		switch {
		case db.IsForeignKeyViolation(err):
			d.logger.Error("dispatch rolled back: recipient removed mid-dispatch",
				slog.String("type", string(typ)), slog.Any("error", err))
		case db.IsUniqueViolation(err):
			d.logger.Error("dispatch rolled back: concurrent duplicate delivery",
				slog.String("type", string(typ)), slog.Any("error", err))
		}
		return 0, err
	}

	if len(missing) > 0 {
		d.logger.Warn("notification skipped stale recipients",
			slog.Int64("notification_id", notificationID), slog.Any("user_ids", missing))
	}
	if len(delivered) == 0 && duplicates == 0 {
		// Committed on purpose: the event is auditable even undelivered.
		d.logger.Error("notification reached zero recipients",
			slog.Int64("notification_id", notificationID), slog.String("type", string(typ)))
		if d.metrics != nil {
			d.metrics.EmptyFanoutsTotal.Inc()
		}
	}
	d.countDispatch(draft.Type, "ok")

	if d.emails != nil && len(delivered) > 0 {
		if err := d.emails.EnqueueNotificationEmail(ctx, notificationID, delivered); err != nil {
			d.logger.Warn("enqueue notification email", slog.Any("error", err))
		}
	}
	return notificationID, nil
}

func (d *Dispatcher) countDispatch(t Type, result string) {
	if d.metrics != nil {
		d.metrics.DispatchesTotal.WithLabelValues(string(t), result).Inc()
	}
}

func (d *Dispatcher) countDelivery(outcome DeliveryOutcome) {
	if d.metrics == nil {
		return
	}
	switch outcome {
	case OutcomeDelivered:
		d.metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
	case OutcomeDuplicate:
		d.metrics.DeliveriesTotal.WithLabelValues("duplicate").Inc()
	case OutcomeMissingUser:
		d.metrics.DeliveriesTotal.WithLabelValues("missing_user").Inc()
	}
}
