package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/noah-isme/aulao-api/internal/models"
)

// Sentinel errors surfaced by the write paths. Lookups keep returning sql.ErrNoRows.
var (
	ErrEventNotPurchasable = errors.New("class event not purchasable")
	ErrDuplicateEnrollment = errors.New("active enrollment already exists")
	ErrCapacityExceeded    = errors.New("class event capacity exceeded")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// DuplicateEnrollmentError carries the enrollment that blocked a purchase.
type DuplicateEnrollmentError struct {
	Existing models.Enrollment
}

func (e *DuplicateEnrollmentError) Error() string {
	return ErrDuplicateEnrollment.Error() + ": " + e.Existing.ID
}

// Is lets callers match with errors.Is(err, ErrDuplicateEnrollment).
func (e *DuplicateEnrollmentError) Is(target error) bool {
	return target == ErrDuplicateEnrollment
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
