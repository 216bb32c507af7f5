package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
)

// EnrollmentRepository reads enrollments from the store.
type EnrollmentRepository struct {
	store *Store
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(store *Store) *EnrollmentRepository {
	return &EnrollmentRepository{store: store}
}

// FindByID returns an enrollment or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	enrollment, ok := r.store.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

// FindActive returns the non-cancelled enrollment of the pair, or nil.
func (r *EnrollmentRepository) FindActive(_ context.Context, studentProfileID, classEventID string) (*models.Enrollment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.findActiveLocked(studentProfileID, classEventID), nil
}

func (s *Store) findActiveLocked(studentProfileID, classEventID string) *models.Enrollment {
	id, ok := s.active[enrollmentKey{studentProfileID: studentProfileID, classEventID: classEventID}]
	if !ok {
		return nil
	}
	enrollment := s.enrollments[id]
	return &enrollment
}

// ListForStudent returns the student's non-cancelled enrollments, earliest class first.
func (r *EnrollmentRepository) ListForStudent(_ context.Context, studentProfileID string) ([]models.AgendaEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]models.AgendaEntry, 0)
	for _, enrollment := range r.store.enrollments {
		if enrollment.StudentProfileID != studentProfileID || !enrollment.Status.IsActive() {
			continue
		}
		event, ok := r.store.classEvents[enrollment.ClassEventID]
		if !ok {
			continue
		}
		entries = append(entries, models.AgendaEntry{Enrollment: enrollment, ClassEvent: cloneEvent(event)})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].ClassEvent.StartsAt, entries[j].ClassEvent.StartsAt
		if a.Equal(b) {
			return entries[i].Enrollment.ID < entries[j].Enrollment.ID
		}
		return a.Before(b)
	})
	return entries, nil
}

// ListForClassEvent returns every enrollment of the event with buyer and payment, oldest first.
func (r *EnrollmentRepository) ListForClassEvent(_ context.Context, classEventID string) ([]models.BuyerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]models.BuyerEntry, 0)
	for _, enrollment := range r.store.enrollments {
		if enrollment.ClassEventID != classEventID {
			continue
		}
		entry := models.BuyerEntry{Enrollment: enrollment}
		if profile, ok := r.store.studentProfiles[enrollment.StudentProfileID]; ok {
			entry.User = r.store.users[profile.UserID]
		}
		if paymentID, ok := r.store.paymentByEnrollment[enrollment.ID]; ok {
			payment := r.store.payments[paymentID]
			entry.Payment = &payment
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Enrollment.CreatedAt, entries[j].Enrollment.CreatedAt
		if a.Equal(b) {
			return entries[i].Enrollment.ID < entries[j].Enrollment.ID
		}
		return a.Before(b)
	})
	return entries, nil
}

// PaymentRepository reads payments from the store.
type PaymentRepository struct {
	store *Store
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

// FindByID returns a payment or sql.ErrNoRows.
func (r *PaymentRepository) FindByID(_ context.Context, id string) (*models.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	payment, ok := r.store.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &payment, nil
}

// FindByEnrollment returns the payment attached to an enrollment.
func (r *PaymentRepository) FindByEnrollment(_ context.Context, enrollmentID string) (*models.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	paymentID, ok := r.store.paymentByEnrollment[enrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	payment := r.store.payments[paymentID]
	return &payment, nil
}

// PurchaseRepository runs checkout and settlement under the store lock.
type PurchaseRepository struct {
	store *Store
}

// NewPurchaseRepository constructs the repository.
func NewPurchaseRepository(store *Store) *PurchaseRepository {
	return &PurchaseRepository{store: store}
}

// Purchase checks for an existing enrollment, reserves a seat and records
// enrollment plus payment as one step.
func (r *PurchaseRepository) Purchase(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event, ok := r.store.classEvents[params.ClassEventID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if existing := r.store.findActiveLocked(params.StudentProfileID, params.ClassEventID); existing != nil {
		return nil, &repository.DuplicateEnrollmentError{Existing: *existing}
	}
	if !event.IsPublished() || event.IsSoldOut() {
		return nil, repository.ErrEventNotPurchasable
	}
	if err := r.store.reserveSeatLocked(event.ID, params.Now); err != nil {
		return nil, err
	}

	enrollment := models.Enrollment{
		ID:               uuid.NewString(),
		ClassEventID:     event.ID,
		StudentProfileID: params.StudentProfileID,
		Status:           models.EnrollmentPending,
		CreatedAt:        params.Now,
	}
	payment := models.Payment{
		ID:           uuid.NewString(),
		EnrollmentID: enrollment.ID,
		Provider:     params.Provider,
		AmountCents:  event.PriceCents,
		Status:       models.PaymentPending,
		CreatedAt:    params.Now,
		UpdatedAt:    params.Now,
	}
	if params.Provider.SettlesSynchronously() {
		enrollment.Status = models.EnrollmentPaid
		payment.Status = models.PaymentSucceeded
	}

	r.store.putEnrollmentLocked(enrollment)
	r.store.payments[payment.ID] = payment
	r.store.paymentByEnrollment[enrollment.ID] = payment.ID

	return &repository.PurchaseResult{
		ClassEvent: cloneEvent(r.store.classEvents[event.ID]),
		Enrollment: enrollment,
		Payment:    payment,
	}, nil
}

// Settle resolves a pending payment.
func (r *PurchaseRepository) Settle(_ context.Context, paymentID string, succeeded bool, now time.Time) (*repository.SettlementResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[paymentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if payment.Status != models.PaymentPending {
		return nil, repository.ErrInvalidTransition
	}
	enrollment, ok := r.store.enrollments[payment.EnrollmentID]
	if !ok || enrollment.Status != models.EnrollmentPending {
		return nil, repository.ErrInvalidTransition
	}

	payment.Status = models.PaymentFailed
	enrollment.Status = models.EnrollmentCancelled
	if succeeded {
		payment.Status = models.PaymentSucceeded
		enrollment.Status = models.EnrollmentPaid
	}
	payment.UpdatedAt = now

	r.store.payments[payment.ID] = payment
	r.store.putEnrollmentLocked(enrollment)
	if !succeeded {
		r.store.releaseSeatLocked(enrollment.ClassEventID, now)
	}

	return &repository.SettlementResult{ClassEventID: enrollment.ClassEventID, Enrollment: enrollment, Payment: payment}, nil
}
