package models

import "time"

// PublicationStatus tracks a class event's visibility lifecycle.
type PublicationStatus string

// Publication statuses.
const (
	PublicationDraft     PublicationStatus = "DRAFT"
	PublicationPublished PublicationStatus = "PUBLISHED"
	PublicationFinished  PublicationStatus = "FINISHED"
)

// Valid reports whether the status is known.
func (s PublicationStatus) Valid() bool {
	switch s {
	case PublicationDraft, PublicationPublished, PublicationFinished:
		return true
	}
	return false
}

// MeetingStatus gates the live session link.
type MeetingStatus string

// Meeting release statuses.
const (
	MeetingLocked   MeetingStatus = "LOCKED"
	MeetingReleased MeetingStatus = "RELEASED"
)

// ClassEvent is a scheduled live session ("aulão") sold by seat.
type ClassEvent struct {
	ID                string            `db:"id" json:"id"`
	Title             string            `db:"title" json:"title"`
	Description       string            `db:"description" json:"description"`
	TeacherProfileID  string            `db:"teacher_profile_id" json:"teacherProfileId"`
	SubjectID         string            `db:"subject_id" json:"subjectId"`
	InstitutionID     string            `db:"institution_id" json:"institutionId"`
	StartsAt          time.Time         `db:"starts_at" json:"startsAt"`
	DurationMin       int               `db:"duration_min" json:"durationMin"`
	PriceCents        int64             `db:"price_cents" json:"priceCents"`
	Capacity          int               `db:"capacity" json:"capacity"`
	SoldSeats         int               `db:"sold_seats" json:"soldSeats"`
	PublicationStatus PublicationStatus `db:"publication_status" json:"publicationStatus"`
	MeetingStatus     MeetingStatus     `db:"meeting_status" json:"meetingStatus"`
	MeetingURL        *string           `db:"meeting_url" json:"meetingUrl,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
}

// EndsAt returns the scheduled end of the session.
func (e ClassEvent) EndsAt() time.Time {
	return e.StartsAt.Add(time.Duration(e.DurationMin) * time.Minute)
}

// IsSoldOut reports whether every seat has been reserved.
func (e ClassEvent) IsSoldOut() bool {
	return e.SoldSeats >= e.Capacity
}

// SpotsRemaining returns the number of seats still available, never negative.
func (e ClassEvent) SpotsRemaining() int {
	if remaining := e.Capacity - e.SoldSeats; remaining > 0 {
		return remaining
	}
	return 0
}

// IsPublished reports whether students can see and buy the event.
func (e ClassEvent) IsPublished() bool {
	return e.PublicationStatus == PublicationPublished
}

// ClassEventFilter narrows class event listings.
type ClassEventFilter struct {
	InstitutionID    string
	SubjectID        string
	TeacherProfileID string
	Status           PublicationStatus
	StartsAfter      *time.Time
}
