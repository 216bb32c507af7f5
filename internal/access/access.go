// Package access decides what a student may do with a class event at a given instant.
//
// Evaluation is pure: callers supply the class event, the student's active
// enrollment (nil when there is none) and the reference time. Results change
// purely as time crosses StartsAt or the meeting is released, so callers must
// re-evaluate instead of caching a state across those boundaries.
package access

import (
	"time"

	"github.com/noah-isme/aulao-api/internal/models"
)

// State evaluates the access state. Order matters: the checks form a priority chain.
func State(event models.ClassEvent, enrollment *models.Enrollment, now time.Time) models.AccessState {
	if enrollment == nil {
		return models.AccessNeedsPurchase
	}
	switch enrollment.Status {
	case models.EnrollmentPending:
		return models.AccessPendingPayment
	case models.EnrollmentPaid:
		if CanEnter(event, enrollment, now) {
			return models.AccessCanEnter
		}
		// Not enterable: either before StartsAt, or the meeting is still locked.
		return models.AccessWaitingRelease
	default:
		return models.AccessNeedsPurchase
	}
}

// CanEnter reports whether the student may join the live session right now.
func CanEnter(event models.ClassEvent, enrollment *models.Enrollment, now time.Time) bool {
	if enrollment == nil || enrollment.Status != models.EnrollmentPaid {
		return false
	}
	return !now.Before(event.StartsAt) && event.MeetingStatus == models.MeetingReleased
}

// Purchasable reports whether the checkout may be offered at all.
func Purchasable(event models.ClassEvent, state models.AccessState) bool {
	return state == models.AccessNeedsPurchase && event.IsPublished() && !event.IsSoldOut()
}
