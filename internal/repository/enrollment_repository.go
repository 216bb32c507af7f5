package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

// EnrollmentRepository reads enrollments for access checks, agendas and buyer lists.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, class_event_id, student_profile_id, status, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActive returns the student's non-cancelled enrollment for the event, or nil when there is none.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentProfileID, classEventID string) (*models.Enrollment, error) {
	return findActiveEnrollment(ctx, r.db, studentProfileID, classEventID)
}

type getter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func findActiveEnrollment(ctx context.Context, db getter, studentProfileID, classEventID string) (*models.Enrollment, error) {
	const query = `SELECT id, class_event_id, student_profile_id, status, created_at FROM enrollments
        WHERE student_profile_id = $1 AND class_event_id = $2 AND status <> $3
        ORDER BY created_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := db.GetContext(ctx, &enrollment, query, studentProfileID, classEventID, models.EnrollmentCancelled); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

type agendaRow struct {
	Enrollment models.Enrollment `db:"enrollment"`
	ClassEvent models.ClassEvent `db:"class_event"`
}

// ListForStudent returns the student's non-cancelled enrollments with their events, earliest start first.
func (r *EnrollmentRepository) ListForStudent(ctx context.Context, studentProfileID string) ([]models.AgendaEntry, error) {
	const query = `SELECT
        e.id AS "enrollment.id", e.class_event_id AS "enrollment.class_event_id",
        e.student_profile_id AS "enrollment.student_profile_id", e.status AS "enrollment.status",
        e.created_at AS "enrollment.created_at",
        ce.id AS "class_event.id", ce.title AS "class_event.title", ce.description AS "class_event.description",
        ce.teacher_profile_id AS "class_event.teacher_profile_id", ce.subject_id AS "class_event.subject_id",
        ce.institution_id AS "class_event.institution_id", ce.starts_at AS "class_event.starts_at",
        ce.duration_min AS "class_event.duration_min", ce.price_cents AS "class_event.price_cents",
        ce.capacity AS "class_event.capacity", ce.sold_seats AS "class_event.sold_seats",
        ce.publication_status AS "class_event.publication_status", ce.meeting_status AS "class_event.meeting_status",
        ce.meeting_url AS "class_event.meeting_url", ce.created_at AS "class_event.created_at",
        ce.updated_at AS "class_event.updated_at"
        FROM enrollments e
        JOIN class_events ce ON ce.id = e.class_event_id
        WHERE e.student_profile_id = $1 AND e.status <> $2
        ORDER BY ce.starts_at ASC, e.id ASC`
	var rows []agendaRow
	if err := r.db.SelectContext(ctx, &rows, query, studentProfileID, models.EnrollmentCancelled); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	entries := make([]models.AgendaEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.AgendaEntry{Enrollment: row.Enrollment, ClassEvent: row.ClassEvent})
	}
	return entries, nil
}

type buyerRow struct {
	Enrollment       models.Enrollment `db:"enrollment"`
	User             models.User       `db:"buyer"`
	PaymentID        sql.NullString    `db:"payment_id"`
	PaymentProvider  sql.NullString    `db:"payment_provider"`
	PaymentAmount    sql.NullInt64     `db:"payment_amount_cents"`
	PaymentStatus    sql.NullString    `db:"payment_status"`
	PaymentCreatedAt sql.NullTime      `db:"payment_created_at"`
	PaymentUpdatedAt sql.NullTime      `db:"payment_updated_at"`
}

// ListForClassEvent returns every enrollment of an event with its buyer and payment, oldest first.
func (r *EnrollmentRepository) ListForClassEvent(ctx context.Context, classEventID string) ([]models.BuyerEntry, error) {
	const query = `SELECT
        e.id AS "enrollment.id", e.class_event_id AS "enrollment.class_event_id",
        e.student_profile_id AS "enrollment.student_profile_id", e.status AS "enrollment.status",
        e.created_at AS "enrollment.created_at",
        u.id AS "buyer.id", u.name AS "buyer.name", u.email AS "buyer.email", u.role AS "buyer.role",
        p.id AS payment_id, p.provider AS payment_provider, p.amount_cents AS payment_amount_cents,
        p.status AS payment_status, p.created_at AS payment_created_at, p.updated_at AS payment_updated_at
        FROM enrollments e
        JOIN student_profiles sp ON sp.id = e.student_profile_id
        JOIN users u ON u.id = sp.user_id
        LEFT JOIN payments p ON p.enrollment_id = e.id
        WHERE e.class_event_id = $1
        ORDER BY e.created_at ASC, e.id ASC`
	var rows []buyerRow
	if err := r.db.SelectContext(ctx, &rows, query, classEventID); err != nil {
		return nil, fmt.Errorf("list class event buyers: %w", err)
	}
	entries := make([]models.BuyerEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.BuyerEntry{Enrollment: row.Enrollment, User: row.User}
		if row.PaymentID.Valid {
			entry.Payment = &models.Payment{
				ID:           row.PaymentID.String,
				EnrollmentID: row.Enrollment.ID,
				Provider:     models.PaymentProvider(row.PaymentProvider.String),
				AmountCents:  row.PaymentAmount.Int64,
				Status:       models.PaymentStatus(row.PaymentStatus.String),
				CreatedAt:    nullTime(row.PaymentCreatedAt),
				UpdatedAt:    nullTime(row.PaymentUpdatedAt),
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func nullTime(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}
