package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/aulao-api/internal/access"
	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
)

type studentEnrollmentLister interface {
	ListForStudent(ctx context.Context, studentProfileID string) ([]models.AgendaEntry, error)
}

// AgendaService builds the student's agenda.
type AgendaService struct {
	enrollments studentEnrollmentLister
	now         func() time.Time
}

// NewAgendaService constructs an AgendaService.
func NewAgendaService(enrollments studentEnrollmentLister) *AgendaService {
	return &AgendaService{enrollments: enrollments, now: time.Now}
}

// Agenda returns the student's active enrollments ordered by class start, each
// placed in its phase and carrying the current access state.
func (s *AgendaService) Agenda(ctx context.Context, studentProfileID string) (*dto.AgendaResponse, error) {
	entries, err := s.enrollments.ListForStudent(ctx, studentProfileID)
	if err != nil {
		return nil, internalError(err, "failed to load agenda")
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ClassEvent.StartsAt.Before(entries[j].ClassEvent.StartsAt)
	})

	now := s.now()
	resp := &dto.AgendaResponse{
		Items: make([]dto.AgendaItem, 0, len(entries)),
		PhaseCounts: map[models.AgendaPhase]int{
			models.PhaseUpcoming: 0,
			models.PhaseLive:     0,
			models.PhasePast:     0,
		},
		GeneratedAt: now.UTC(),
	}
	for _, entry := range entries {
		enrollment := entry.Enrollment
		item := dto.AgendaItem{
			Enrollment:  enrollment,
			ClassEvent:  entry.ClassEvent,
			Phase:       models.PhaseAt(entry.ClassEvent, now),
			AccessState: access.State(entry.ClassEvent, &enrollment, now),
			CanEnter:    access.CanEnter(entry.ClassEvent, &enrollment, now),
		}
		if !item.CanEnter {
			item.ClassEvent.MeetingURL = nil
		}
		resp.PhaseCounts[item.Phase]++
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}
