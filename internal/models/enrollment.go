package models

import "time"

// EnrollmentStatus represents the lifecycle of a seat claim.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentPending   EnrollmentStatus = "PENDING"
	EnrollmentPaid      EnrollmentStatus = "PAID"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
	EnrollmentRefunded  EnrollmentStatus = "REFUNDED"
)

// IsActive reports whether the status still holds the student's seat claim.
func (s EnrollmentStatus) IsActive() bool {
	return s != EnrollmentCancelled
}

// Enrollment captures a student's claim on a class event seat.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	ClassEventID     string           `db:"class_event_id" json:"classEventId"`
	StudentProfileID string           `db:"student_profile_id" json:"studentProfileId"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}

// AgendaPhase places an enrolled class event relative to now.
type AgendaPhase string

// Agenda phases.
const (
	PhaseUpcoming AgendaPhase = "UPCOMING"
	PhaseLive     AgendaPhase = "LIVE"
	PhasePast     AgendaPhase = "PAST"
)

// PhaseAt derives the agenda phase of a class event at the given instant.
// The live window includes both its start and end instants.
func PhaseAt(event ClassEvent, now time.Time) AgendaPhase {
	switch {
	case now.Before(event.StartsAt):
		return PhaseUpcoming
	case now.After(event.EndsAt()):
		return PhasePast
	default:
		return PhaseLive
	}
}

// AgendaEntry pairs an enrollment with its class event.
type AgendaEntry struct {
	Enrollment Enrollment `json:"enrollment"`
	ClassEvent ClassEvent `json:"classEvent"`
}

// BuyerEntry is one row of a teacher's buyer list.
type BuyerEntry struct {
	Enrollment Enrollment `json:"enrollment"`
	User       User       `json:"user"`
	Payment    *Payment   `json:"payment,omitempty"`
}
