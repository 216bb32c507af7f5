package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

// PaymentRepository reads payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, enrollment_id, provider, amount_cents, status, created_at, updated_at FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByEnrollment returns the payment attached to an enrollment.
func (r *PaymentRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error) {
	const query = `SELECT id, enrollment_id, provider, amount_cents, status, created_at, updated_at FROM payments
        WHERE enrollment_id = $1 ORDER BY created_at DESC LIMIT 1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, enrollmentID); err != nil {
		return nil, err
	}
	return &payment, nil
}
