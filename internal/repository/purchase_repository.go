package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

// PurchaseParams describes a seat purchase.
type PurchaseParams struct {
	ClassEventID     string
	StudentProfileID string
	Provider         models.PaymentProvider
	Now              time.Time
}

// PurchaseResult is the state committed by a successful purchase.
type PurchaseResult struct {
	ClassEvent models.ClassEvent
	Enrollment models.Enrollment
	Payment    models.Payment
}

// SettlementResult is the state committed when a pending payment settles.
type SettlementResult struct {
	ClassEventID string
	Enrollment   models.Enrollment
	Payment      models.Payment
}

// PurchaseRepository runs the checkout and settlement transactions.
type PurchaseRepository struct {
	db *sqlx.DB
}

// NewPurchaseRepository constructs the repository.
func NewPurchaseRepository(db *sqlx.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Purchase reserves one seat and records the enrollment and payment atomically.
// The class event row is locked first so concurrent buyers and lifecycle changes
// serialize on it. An existing active enrollment wins over availability so a
// returning buyer is always pointed at what they already hold.
func (r *PurchaseRepository) Purchase(ctx context.Context, params PurchaseParams) (result *PurchaseResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var event models.ClassEvent
	selectQuery := `SELECT ` + classEventColumns + ` FROM class_events WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &event, selectQuery, params.ClassEventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock class event: %w", err)
	}

	existing, err := findActiveEnrollment(ctx, tx, params.StudentProfileID, params.ClassEventID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = &DuplicateEnrollmentError{Existing: *existing}
		return nil, err
	}

	if !event.IsPublished() || event.IsSoldOut() {
		err = ErrEventNotPurchasable
		return nil, err
	}

	sold, err := reserveSeat(ctx, tx, event.ID, params.Now)
	if err != nil {
		return nil, err
	}
	event.SoldSeats = sold
	event.UpdatedAt = params.Now

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

	const insertEnrollment = `INSERT INTO enrollments (id, class_event_id, student_profile_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertEnrollment, enrollment.ID, enrollment.ClassEventID, enrollment.StudentProfileID, enrollment.Status, enrollment.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
			return nil, err
		}
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	const insertPayment = `INSERT INTO payments (id, enrollment_id, provider, amount_cents, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertPayment, payment.ID, payment.EnrollmentID, payment.Provider, payment.AmountCents, payment.Status, payment.CreatedAt, payment.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	return &PurchaseResult{ClassEvent: event, Enrollment: enrollment, Payment: payment}, nil
}

// Settle resolves a pending payment. Success marks the enrollment PAID; failure
// cancels the enrollment and returns its seat to the event.
func (r *PurchaseRepository) Settle(ctx context.Context, paymentID string, succeeded bool, now time.Time) (result *SettlementResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settlement transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var payment models.Payment
	const lockPayment = `SELECT id, enrollment_id, provider, amount_cents, status, created_at, updated_at
        FROM payments WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &payment, lockPayment, paymentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	if payment.Status != models.PaymentPending {
		err = ErrInvalidTransition
		return nil, err
	}

	var enrollment models.Enrollment
	const lockEnrollment = `SELECT id, class_event_id, student_profile_id, status, created_at
        FROM enrollments WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &enrollment, lockEnrollment, payment.EnrollmentID); err != nil {
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	if enrollment.Status != models.EnrollmentPending {
		err = ErrInvalidTransition
		return nil, err
	}

	payment.Status = models.PaymentFailed
	enrollment.Status = models.EnrollmentCancelled
	if succeeded {
		payment.Status = models.PaymentSucceeded
		enrollment.Status = models.EnrollmentPaid
	}
	payment.UpdatedAt = now

	const updatePayment = `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updatePayment, payment.ID, payment.Status, now); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	const updateEnrollment = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateEnrollment, enrollment.ID, enrollment.Status); err != nil {
		return nil, fmt.Errorf("update enrollment: %w", err)
	}
	if !succeeded {
		if err = releaseSeat(ctx, tx, enrollment.ClassEventID, now); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	return &SettlementResult{ClassEventID: enrollment.ClassEventID, Enrollment: enrollment, Payment: payment}, nil
}
