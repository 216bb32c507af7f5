package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/pkg/response"
)

type paymentSettler interface {
	Payment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error)
	ConfirmPayment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error)
	FailPayment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error)
}

// PaymentHandler serves payment status and provider settlement callbacks.
type PaymentHandler struct {
	service paymentSettler
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(service paymentSettler) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Get godoc
// @Summary Payment status
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.service.Payment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}

// Confirm godoc
// @Summary Mark a pending payment as succeeded
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id}/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	result, err := h.service.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Fail godoc
// @Summary Mark a pending payment as failed and release its seat
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id}/fail [post]
func (h *PaymentHandler) Fail(c *gin.Context) {
	result, err := h.service.FailPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
