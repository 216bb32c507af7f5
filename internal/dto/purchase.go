package dto

import "github.com/noah-isme/aulao-api/internal/models"

// PurchaseRequest starts a checkout. An empty provider settles through MOCK.
type PurchaseRequest struct {
	Provider models.PaymentProvider `json:"provider" validate:"omitempty,oneof=STRIPE MERCADOPAGO MOCK"`
}

// PurchaseResponse describes the ledger state after a successful checkout.
type PurchaseResponse struct {
	Enrollment   models.Enrollment  `json:"enrollment"`
	Payment      models.Payment     `json:"payment"`
	AccessState  models.AccessState `json:"accessState"`
	Availability Availability       `json:"availability"`
}

// SettlementResponse describes a payment after a provider callback.
type SettlementResponse struct {
	Enrollment models.Enrollment `json:"enrollment"`
	Payment    models.Payment    `json:"payment"`
}
