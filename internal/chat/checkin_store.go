package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CheckInRecord is one scheduled follow-up on an owner's next goal.
type CheckInRecord struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Goal        string    `json:"goal"`
	Timing      string    `json:"timing"`
	DueAt       time.Time `json:"dueAt"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

const defaultCheckInListLimit = 50

// CheckInStore persists check-ins in Postgres (table check_ins).
type CheckInStore struct {
	db     DB
	tracer trace.Tracer
	now    func() time.Time
}

func NewCheckInStore(db DB) *CheckInStore {
	if db == nil {
		panic("chat: check-in db cannot be nil")
	}
	return &CheckInStore{
		db:     db,
		tracer: otel.Tracer("reflection.internal.chat.checkins"),
		now:    time.Now,
	}
}

// Insert stores rec, filling ID and CreatedAt when unset.
func (s *CheckInStore) Insert(ctx context.Context, rec *CheckInRecord) error {
	if rec == nil {
		return fmt.Errorf("chat: check-in cannot be nil")
	}
	if strings.TrimSpace(rec.OwnerID) == "" {
		return ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.insert_checkin")
	defer span.End()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO check_ins (id, owner_id, goal, timing, due_at, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.OwnerID, rec.Goal, rec.Timing, rec.DueAt.UTC(), rec.Description, rec.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: insert check-in: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's check-ins, newest first. limit <= 0 uses a default.
func (s *CheckInStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]CheckInRecord, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}
	if limit <= 0 {
		limit = defaultCheckInListLimit
	}
	ctx, span := s.tracer.Start(ctx, "chat.list_checkins")
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT id::text, owner_id, goal, timing, due_at, description, created_at
		FROM check_ins
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: list check-ins: %w", err)
	}
	defer rows.Close()

	var out []CheckInRecord
	for rows.Next() {
		var (
			rec CheckInRecord
			id  string
		)
		if err := rows.Scan(&id, &rec.OwnerID, &rec.Goal, &rec.Timing, &rec.DueAt, &rec.Description, &rec.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chat: scan check-in: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("chat: scan check-in id %q: %w", id, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: list check-ins: %w", err)
	}
	return out, nil
}
