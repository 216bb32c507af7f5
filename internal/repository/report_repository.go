package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

const classEventStatsSelect = `SELECT
        ce.id AS "class_event.id", ce.title AS "class_event.title", ce.description AS "class_event.description",
        ce.teacher_profile_id AS "class_event.teacher_profile_id", ce.subject_id AS "class_event.subject_id",
        ce.institution_id AS "class_event.institution_id", ce.starts_at AS "class_event.starts_at",
        ce.duration_min AS "class_event.duration_min", ce.price_cents AS "class_event.price_cents",
        ce.capacity AS "class_event.capacity", ce.sold_seats AS "class_event.sold_seats",
        ce.publication_status AS "class_event.publication_status", ce.meeting_status AS "class_event.meeting_status",
        ce.meeting_url AS "class_event.meeting_url", ce.created_at AS "class_event.created_at",
        ce.updated_at AS "class_event.updated_at",
        COALESCE((SELECT COUNT(*) FROM enrollments e WHERE e.class_event_id = ce.id AND e.status = 'PAID'), 0) AS paid_enrollments,
        COALESCE((SELECT COUNT(*) FROM enrollments e WHERE e.class_event_id = ce.id AND e.status = 'PENDING'), 0) AS pending_enrollments,
        COALESCE((SELECT SUM(p.amount_cents) FROM payments p JOIN enrollments e ON e.id = p.enrollment_id
            WHERE e.class_event_id = ce.id AND p.status = 'SUCCEEDED'), 0) AS revenue_succeeded_cents
        FROM class_events ce`

// ReportRepository aggregates enrollments and payments for teacher reporting.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ListTeacherClassStats returns per-event aggregates for every class event of a teacher, in any
// publication status, ordered by start time.
func (r *ReportRepository) ListTeacherClassStats(ctx context.Context, teacherProfileID string) ([]models.ClassEventStats, error) {
	query := classEventStatsSelect + ` WHERE ce.teacher_profile_id = $1 ORDER BY ce.starts_at ASC, ce.id ASC`
	var stats []models.ClassEventStats
	if err := r.db.SelectContext(ctx, &stats, query, teacherProfileID); err != nil {
		return nil, fmt.Errorf("list teacher class stats: %w", err)
	}
	return stats, nil
}

// ClassEventStats returns the aggregates of a single class event.
func (r *ReportRepository) ClassEventStats(ctx context.Context, classEventID string) (*models.ClassEventStats, error) {
	query := classEventStatsSelect + ` WHERE ce.id = $1`
	var stats models.ClassEventStats
	if err := r.db.GetContext(ctx, &stats, query, classEventID); err != nil {
		return nil, err
	}
	return &stats, nil
}
