package memory

import (
	"context"
	"database/sql"

	"github.com/noah-isme/aulao-api/internal/models"
)

// ReportRepository aggregates the in-memory ledger.
type ReportRepository struct {
	store *Store
}

// NewReportRepository constructs the repository.
func NewReportRepository(store *Store) *ReportRepository {
	return &ReportRepository{store: store}
}

// ListTeacherClassStats returns per-event aggregates for every class of the teacher.
func (r *ReportRepository) ListTeacherClassStats(_ context.Context, teacherProfileID string) ([]models.ClassEventStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	events := r.store.sortedEvents(func(event models.ClassEvent) bool {
		return event.TeacherProfileID == teacherProfileID
	})
	stats := make([]models.ClassEventStats, 0, len(events))
	for _, event := range events {
		stats = append(stats, r.store.statsLocked(event))
	}
	return stats, nil
}

// ClassEventStats returns the aggregates of one class event.
func (r *ReportRepository) ClassEventStats(_ context.Context, classEventID string) (*models.ClassEventStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	event, ok := r.store.classEvents[classEventID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stats := r.store.statsLocked(cloneEvent(event))
	return &stats, nil
}

func (s *Store) statsLocked(event models.ClassEvent) models.ClassEventStats {
	stats := models.ClassEventStats{ClassEvent: event}
	for _, enrollment := range s.enrollments {
		if enrollment.ClassEventID != event.ID {
			continue
		}
		switch enrollment.Status {
		case models.EnrollmentPaid:
			stats.PaidEnrollments++
		case models.EnrollmentPending:
			stats.PendingEnrollments++
		}
		if paymentID, ok := s.paymentByEnrollment[enrollment.ID]; ok {
			if payment := s.payments[paymentID]; payment.Status == models.PaymentSucceeded {
				stats.RevenueSucceededCents += payment.AmountCents
			}
		}
	}
	return stats
}
