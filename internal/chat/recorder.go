package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

type checkInInserter interface {
	Insert(ctx context.Context, rec *CheckInRecord) error
}

type checkInEventPublisher interface {
	Publish(ctx context.Context, event CheckInEvent) error
}

// Recorder stores scheduled check-ins and announces them. Either side may be
// absent; both are attempted even if the first fails.
type Recorder struct {
	store     checkInInserter
	publisher checkInEventPublisher
	logger    *logging.Logger
	now       func() time.Time
}

var _ reflection.CheckInRecorder = (*Recorder)(nil)

// NewRecorder returns nil when neither a store nor a publisher is configured.
func NewRecorder(store *CheckInStore, publisher *CheckInPublisher, logger *logging.Logger) *Recorder {
	if store == nil && publisher == nil {
		return nil
	}
	r := &Recorder{logger: logger, now: time.Now}
	if store != nil {
		r.store = store
	}
	if publisher != nil {
		r.publisher = publisher
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

func (r *Recorder) RecordCheckIn(ctx context.Context, ownerID string, goal reflection.GoalDisplay, checkIn reflection.CheckIn) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	dueAt, err := time.Parse(time.RFC3339Nano, checkIn.IsoCheckInDateTime)
	if err != nil {
		return fmt.Errorf("chat: invalid check-in time %q: %w", checkIn.IsoCheckInDateTime, err)
	}

	rec := &CheckInRecord{
		OwnerID:     ownerID,
		Goal:        goal.Goal,
		Timing:      goal.Timing,
		DueAt:       dueAt.UTC(),
		Description: checkIn.DescriptiveCheckIn,
	}

	var errs []error
	if r.store != nil {
		if err := r.store.Insert(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if r.publisher != nil {
		event := CheckInEvent{
			Type:        EventCheckInScheduled,
			OwnerID:     ownerID,
			Goal:        rec.Goal,
			Timing:      rec.Timing,
			DueAt:       rec.DueAt.Format(time.RFC3339),
			Description: rec.Description,
			OccurredAt:  r.now().UTC().Format(time.RFC3339Nano),
		}
		if rec.ID != uuid.Nil {
			event.CheckInID = rec.ID.String()
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		r.logger.Info("check-in recorded", "owner_id", ownerID, "due_at", rec.DueAt)
	}
	return errors.Join(errs...)
}
