package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

const classEventColumns = `id, title, description, teacher_profile_id, subject_id, institution_id, starts_at, duration_min,
        price_cents, capacity, sold_seats, publication_status, meeting_status, meeting_url, created_at, updated_at`

// ClassEventRepository owns class event records and their seat counters.
type ClassEventRepository struct {
	db *sqlx.DB
}

// NewClassEventRepository constructs the repository.
func NewClassEventRepository(db *sqlx.DB) *ClassEventRepository {
	return &ClassEventRepository{db: db}
}

// FindByID returns a class event regardless of publication status.
func (r *ClassEventRepository) FindByID(ctx context.Context, id string) (*models.ClassEvent, error) {
	query := `SELECT ` + classEventColumns + ` FROM class_events WHERE id = $1`
	var event models.ClassEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns class events matching the filter ordered by start time.
func (r *ClassEventRepository) List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error) {
	var conditions []string
	var args []interface{}

	if filter.InstitutionID != "" {
		conditions = append(conditions, fmt.Sprintf("institution_id = $%d", len(args)+1))
		args = append(args, filter.InstitutionID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_profile_id = $%d", len(args)+1))
		args = append(args, filter.TeacherProfileID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("publication_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at > $%d", len(args)+1))
		args = append(args, *filter.StartsAfter)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT ` + classEventColumns + ` FROM class_events` + clause + ` ORDER BY starts_at ASC, id ASC`
	var events []models.ClassEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list class events: %w", err)
	}
	return events, nil
}

// Create persists a new class event. New events always start as DRAFT and LOCKED with no seats sold.
func (r *ClassEventRepository) Create(ctx context.Context, event *models.ClassEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = event.CreatedAt
	event.SoldSeats = 0
	event.PublicationStatus = models.PublicationDraft
	event.MeetingStatus = models.MeetingLocked

	const query = `INSERT INTO class_events (id, title, description, teacher_profile_id, subject_id, institution_id, starts_at,
        duration_min, price_cents, capacity, sold_seats, publication_status, meeting_status, meeting_url, created_at, updated_at)
        VALUES (:id, :title, :description, :teacher_profile_id, :subject_id, :institution_id, :starts_at,
        :duration_min, :price_cents, :capacity, :sold_seats, :publication_status, :meeting_status, :meeting_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create class event: %w", err)
	}
	return nil
}

// TransitionPublication moves an event from one publication status to another.
// It returns ErrInvalidTransition when the event is not currently in `from`.
func (r *ClassEventRepository) TransitionPublication(ctx context.Context, id string, from, to models.PublicationStatus, now time.Time) error {
	const query = `UPDATE class_events SET publication_status = $3, updated_at = $4 WHERE id = $1 AND publication_status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, now)
	if err != nil {
		return fmt.Errorf("transition class event publication: %w", err)
	}
	return requireAffected(res, ErrInvalidTransition)
}

// ReleaseMeeting flips a locked meeting to released once the event has started.
func (r *ClassEventRepository) ReleaseMeeting(ctx context.Context, id, meetingURL string, now time.Time) error {
	const query = `UPDATE class_events SET meeting_status = $2, meeting_url = $3, updated_at = $4
        WHERE id = $1 AND meeting_status = $5 AND starts_at <= $4`
	res, err := r.db.ExecContext(ctx, query, id, models.MeetingReleased, meetingURL, now, models.MeetingLocked)
	if err != nil {
		return fmt.Errorf("release meeting: %w", err)
	}
	return requireAffected(res, ErrInvalidTransition)
}

// ReleaseDue releases every published, locked meeting whose event has started and carries a URL.
func (r *ClassEventRepository) ReleaseDue(ctx context.Context, now time.Time) ([]models.ClassEvent, error) {
	query := `UPDATE class_events SET meeting_status = $1, updated_at = $2
        WHERE meeting_status = $3 AND publication_status = $4 AND starts_at <= $2 AND meeting_url IS NOT NULL
        RETURNING ` + classEventColumns
	var released []models.ClassEvent
	if err := r.db.SelectContext(ctx, &released, query, models.MeetingReleased, now, models.MeetingLocked, models.PublicationPublished); err != nil {
		return nil, fmt.Errorf("release due meetings: %w", err)
	}
	return released, nil
}

// FinishElapsed marks published events whose session has ended as FINISHED.
func (r *ClassEventRepository) FinishElapsed(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE class_events SET publication_status = $1, updated_at = $2
        WHERE publication_status = $3 AND starts_at + make_interval(mins => duration_min) < $2`
	res, err := r.db.ExecContext(ctx, query, models.PublicationFinished, now, models.PublicationPublished)
	if err != nil {
		return 0, fmt.Errorf("finish elapsed class events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finish elapsed class events: %w", err)
	}
	return affected, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// reserveSeat claims one seat on a published event and returns the new sold count.
func reserveSeat(ctx context.Context, tx *sqlx.Tx, id string, now time.Time) (int, error) {
	const query = `UPDATE class_events SET sold_seats = sold_seats + 1, updated_at = $2
        WHERE id = $1 AND publication_status = 'PUBLISHED' AND sold_seats < capacity
        RETURNING sold_seats`
	var sold int
	if err := tx.QueryRowxContext(ctx, query, id, now).Scan(&sold); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrCapacityExceeded
		}
		return 0, fmt.Errorf("reserve seat: %w", err)
	}
	return sold, nil
}

func releaseSeat(ctx context.Context, db execer, id string, now time.Time) error {
	const query = `UPDATE class_events SET sold_seats = sold_seats - 1, updated_at = $2 WHERE id = $1 AND sold_seats > 0`
	if _, err := db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, otherwise error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return otherwise
	}
	return nil
}
