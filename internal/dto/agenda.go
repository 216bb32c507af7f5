package dto

import (
	"time"

	"github.com/noah-isme/aulao-api/internal/models"
)

// AgendaItem is one enrolled class event on the student's agenda.
type AgendaItem struct {
	Enrollment  models.Enrollment  `json:"enrollment"`
	ClassEvent  models.ClassEvent  `json:"classEvent"`
	Phase       models.AgendaPhase `json:"phase"`
	AccessState models.AccessState `json:"accessState"`
	CanEnter    bool               `json:"canEnter"`
}

// AgendaResponse lists agenda items by class start with per-phase counts.
type AgendaResponse struct {
	Items       []AgendaItem               `json:"items"`
	PhaseCounts map[models.AgendaPhase]int `json:"phaseCounts"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}
