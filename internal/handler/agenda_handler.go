package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/pkg/response"
)

type agendaService interface {
	Agenda(ctx context.Context, studentProfileID string) (*dto.AgendaResponse, error)
}

// AgendaHandler serves the student's agenda.
type AgendaHandler struct {
	service agendaService
}

// NewAgendaHandler constructs the handler.
func NewAgendaHandler(service agendaService) *AgendaHandler {
	return &AgendaHandler{service: service}
}

// Agenda godoc
// @Summary Student agenda grouped by phase
// @Tags Agenda
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/agenda [get]
func (h *AgendaHandler) Agenda(c *gin.Context) {
	agenda, err := h.service.Agenda(c.Request.Context(), viewerFromContext(c).StudentProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, agenda)
}
