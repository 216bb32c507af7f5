package dto

import (
	"time"

	"github.com/noah-isme/aulao-api/internal/models"
)

// CreateClassEventRequest is the payload a teacher submits to draft a class.
type CreateClassEventRequest struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"max=4000"`
	InstitutionID string    `json:"institutionId" validate:"required"`
	SubjectID     string    `json:"subjectId" validate:"required"`
	StartsAt      time.Time `json:"startsAt" validate:"required"`
	DurationMin   int       `json:"durationMin" validate:"gt=0,lte=720"`
	PriceCents    int64     `json:"priceCents" validate:"gte=0"`
	Capacity      int       `json:"capacity" validate:"gt=0"`
	MeetingURL    *string   `json:"meetingUrl" validate:"omitempty,url"`
}

// ReleaseMeetingRequest opens the live session. An empty URL reuses the one stored on the event.
type ReleaseMeetingRequest struct {
	MeetingURL string `json:"meetingUrl" validate:"omitempty,url"`
}

// ClassEventListQuery filters the student catalog.
type ClassEventListQuery struct {
	InstitutionID string `form:"institutionId"`
	SubjectID     string `form:"subjectId"`
	TeacherID     string `form:"teacherId"`
}

// Availability reports seat accounting for one class event.
type Availability struct {
	ClassEventID   string `json:"classEventId"`
	Capacity       int    `json:"capacity"`
	SoldSeats      int    `json:"soldSeats"`
	SpotsRemaining int    `json:"spotsRemaining"`
	IsSoldOut      bool   `json:"isSoldOut"`
}

// NewAvailability derives availability from an event snapshot.
func NewAvailability(event models.ClassEvent) Availability {
	return Availability{
		ClassEventID:   event.ID,
		Capacity:       event.Capacity,
		SoldSeats:      event.SoldSeats,
		SpotsRemaining: event.SpotsRemaining(),
		IsSoldOut:      event.IsSoldOut(),
	}
}

// ClassEventDetail is the student-facing view of a class event.
type ClassEventDetail struct {
	ClassEvent     models.ClassEvent  `json:"classEvent"`
	SpotsRemaining int                `json:"spotsRemaining"`
	IsSoldOut      bool               `json:"isSoldOut"`
	AccessState    models.AccessState `json:"accessState"`
	CanEnter       bool               `json:"canEnter"`
	CanPurchase    bool               `json:"canPurchase"`
	Enrollment     *models.Enrollment `json:"enrollment,omitempty"`
}

// AccessStateResponse answers the access state query.
type AccessStateResponse struct {
	ClassEventID     string             `json:"classEventId"`
	StudentProfileID string             `json:"studentProfileId"`
	AccessState      models.AccessState `json:"accessState"`
	EvaluatedAt      time.Time          `json:"evaluatedAt"`
}

// CanEnterResponse answers the join predicate.
type CanEnterResponse struct {
	ClassEventID string    `json:"classEventId"`
	CanEnter     bool      `json:"canEnter"`
	EvaluatedAt  time.Time `json:"evaluatedAt"`
}

// JoinLink is a short-lived token redeemable for the meeting URL.
type JoinLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
