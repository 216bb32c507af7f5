package models

import "time"

// PaymentProvider identifies who settled a payment.
type PaymentProvider string

// Supported providers.
const (
	ProviderStripe      PaymentProvider = "STRIPE"
	ProviderMercadoPago PaymentProvider = "MERCADOPAGO"
	ProviderMock        PaymentProvider = "MOCK"
)

// Valid reports whether the provider is known.
func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderStripe, ProviderMercadoPago, ProviderMock:
		return true
	}
	return false
}

// SettlesSynchronously reports whether checkout can mark the seat paid immediately.
func (p PaymentProvider) SettlesSynchronously() bool {
	return p == ProviderMock
}

// PaymentStatus tracks settlement.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment is the settlement record of an enrollment.
type Payment struct {
	ID           string          `db:"id" json:"id"`
	EnrollmentID string          `db:"enrollment_id" json:"enrollmentId"`
	Provider     PaymentProvider `db:"provider" json:"provider"`
	AmountCents  int64           `db:"amount_cents" json:"amountCents"`
	Status       PaymentStatus   `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}
