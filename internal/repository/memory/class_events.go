package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
)

// ClassEventRepository serves class events from the store.
type ClassEventRepository struct {
	store *Store
}

// NewClassEventRepository constructs the repository.
func NewClassEventRepository(store *Store) *ClassEventRepository {
	return &ClassEventRepository{store: store}
}

// FindByID returns a class event or sql.ErrNoRows.
func (r *ClassEventRepository) FindByID(_ context.Context, id string) (*models.ClassEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	event, ok := r.store.classEvents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	event = cloneEvent(event)
	return &event, nil
}

// List returns matching class events ordered by start time.
func (r *ClassEventRepository) List(_ context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.sortedEvents(func(event models.ClassEvent) bool {
		if filter.InstitutionID != "" && event.InstitutionID != filter.InstitutionID {
			return false
		}
		if filter.SubjectID != "" && event.SubjectID != filter.SubjectID {
			return false
		}
		if filter.TeacherProfileID != "" && event.TeacherProfileID != filter.TeacherProfileID {
			return false
		}
		if filter.Status != "" && event.PublicationStatus != filter.Status {
			return false
		}
		if filter.StartsAfter != nil && !event.StartsAt.After(*filter.StartsAfter) {
			return false
		}
		return true
	}), nil
}

// Create stores a new DRAFT event with no seats sold.
func (r *ClassEventRepository) Create(_ context.Context, event *models.ClassEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.UpdatedAt = event.CreatedAt
	event.SoldSeats = 0
	event.PublicationStatus = models.PublicationDraft
	event.MeetingStatus = models.MeetingLocked

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.classEvents[event.ID] = cloneEvent(*event)
	return nil
}

// TransitionPublication moves an event from one publication status to another.
func (r *ClassEventRepository) TransitionPublication(_ context.Context, id string, from, to models.PublicationStatus, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	event, ok := r.store.classEvents[id]
	if !ok || event.PublicationStatus != from {
		return repository.ErrInvalidTransition
	}
	event.PublicationStatus = to
	event.UpdatedAt = now
	r.store.classEvents[id] = event
	return nil
}

// ReleaseMeeting flips a locked meeting to released once the event has started.
func (r *ClassEventRepository) ReleaseMeeting(_ context.Context, id, meetingURL string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	event, ok := r.store.classEvents[id]
	if !ok || event.MeetingStatus != models.MeetingLocked || now.Before(event.StartsAt) {
		return repository.ErrInvalidTransition
	}
	event.MeetingStatus = models.MeetingReleased
	event.MeetingURL = &meetingURL
	event.UpdatedAt = now
	r.store.classEvents[id] = event
	return nil
}

// ReleaseDue releases published, started meetings that already carry a URL.
func (r *ClassEventRepository) ReleaseDue(_ context.Context, now time.Time) ([]models.ClassEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	due := r.store.sortedEvents(func(event models.ClassEvent) bool {
		return event.MeetingStatus == models.MeetingLocked &&
			event.IsPublished() &&
			!now.Before(event.StartsAt) &&
			event.MeetingURL != nil
	})
	for i := range due {
		due[i].MeetingStatus = models.MeetingReleased
		due[i].UpdatedAt = now
		r.store.classEvents[due[i].ID] = cloneEvent(due[i])
	}
	return due, nil
}

// FinishElapsed marks published events whose session has ended as FINISHED.
func (r *ClassEventRepository) FinishElapsed(_ context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var finished int64
	for id, event := range r.store.classEvents {
		if event.IsPublished() && event.EndsAt().Before(now) {
			event.PublicationStatus = models.PublicationFinished
			event.UpdatedAt = now
			r.store.classEvents[id] = event
			finished++
		}
	}
	return finished, nil
}

func (s *Store) reserveSeatLocked(id string, now time.Time) error {
	event, ok := s.classEvents[id]
	if !ok {
		return sql.ErrNoRows
	}
	if event.SoldSeats >= event.Capacity {
		return repository.ErrCapacityExceeded
	}
	event.SoldSeats++
	event.UpdatedAt = now
	s.classEvents[id] = event
	return nil
}

func (s *Store) releaseSeatLocked(id string, now time.Time) {
	event, ok := s.classEvents[id]
	if !ok || event.SoldSeats == 0 {
		return
	}
	event.SoldSeats--
	event.UpdatedAt = now
	s.classEvents[id] = event
}
