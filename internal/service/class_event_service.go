package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

type classEventStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassEvent, error)
	List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error)
	Create(ctx context.Context, event *models.ClassEvent) error
	TransitionPublication(ctx context.Context, id string, from, to models.PublicationStatus, now time.Time) error
	ReleaseMeeting(ctx context.Context, id, meetingURL string, now time.Time) error
}

type catalogReferenceReader interface {
	FindInstitution(ctx context.Context, id string) (*models.Institution, error)
	FindSubject(ctx context.Context, id string) (*models.Subject, error)
}

// ClassEventServiceParams groups constructor dependencies.
type ClassEventServiceParams struct {
	Events    classEventStore
	Catalog   catalogReferenceReader
	Cache     *CacheService
	Metrics   *MetricsService
	Emitter   EventEmitter
	Validator *validator.Validate
	Logger    *zap.Logger
}

// ClassEventService manages a teacher's class events through their lifecycle.
type ClassEventService struct {
	events    classEventStore
	catalog   catalogReferenceReader
	cache     *CacheService
	metrics   *MetricsService
	emitter   EventEmitter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassEventService constructs a ClassEventService.
func NewClassEventService(params ClassEventServiceParams) *ClassEventService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	return &ClassEventService{
		events:    params.Events,
		catalog:   params.Catalog,
		cache:     params.Cache,
		metrics:   params.Metrics,
		emitter:   params.Emitter,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// ListForTeacher returns every class of the teacher ordered by start time.
func (s *ClassEventService) ListForTeacher(ctx context.Context, teacherProfileID string, status models.PublicationStatus) ([]models.ClassEvent, error) {
	events, err := s.events.List(ctx, models.ClassEventFilter{TeacherProfileID: teacherProfileID, Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class events")
	}
	return events, nil
}

// Get returns one class event owned by the teacher.
func (s *ClassEventService) Get(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error) {
	return s.loadOwned(ctx, teacherProfileID, classEventID)
}

// Create drafts a new class event for the teacher.
func (s *ClassEventService) Create(ctx context.Context, teacherProfileID string, req dto.CreateClassEventRequest) (*models.ClassEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class event payload")
	}
	if _, err := s.catalog.FindInstitution(ctx, req.InstitutionID); err != nil {
		return nil, referenceError(err, "institution not found")
	}
	if _, err := s.catalog.FindSubject(ctx, req.SubjectID); err != nil {
		return nil, referenceError(err, "subject not found")
	}

	event := &models.ClassEvent{
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		TeacherProfileID: teacherProfileID,
		SubjectID:        req.SubjectID,
		InstitutionID:    req.InstitutionID,
		StartsAt:         req.StartsAt.UTC(),
		DurationMin:      req.DurationMin,
		PriceCents:       req.PriceCents,
		Capacity:         req.Capacity,
		MeetingURL:       req.MeetingURL,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class event")
	}
	s.logger.Info("class event drafted", zap.String("class_event_id", event.ID), zap.String("teacher_profile_id", teacherProfileID))
	s.invalidateDashboard(ctx, teacherProfileID)
	return event, nil
}

// Publish makes a draft visible and purchasable.
func (s *ClassEventService) Publish(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error) {
	return s.transition(ctx, teacherProfileID, classEventID, models.PublicationDraft, models.PublicationPublished, EventClassEventPublished)
}

// Finish archives a published class event.
func (s *ClassEventService) Finish(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error) {
	return s.transition(ctx, teacherProfileID, classEventID, models.PublicationPublished, models.PublicationFinished, EventClassEventFinished)
}

func (s *ClassEventService) transition(ctx context.Context, teacherProfileID, classEventID string, from, to models.PublicationStatus, eventType string) (*models.ClassEvent, error) {
	event, err := s.loadOwned(ctx, teacherProfileID, classEventID)
	if err != nil {
		return nil, err
	}
	if event.PublicationStatus != from {
		return nil, invalidPublication(event.PublicationStatus, to)
	}
	if err := s.events.TransitionPublication(ctx, classEventID, from, to, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, invalidPublication(event.PublicationStatus, to)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class event")
	}
	updated, err := s.loadOwned(ctx, teacherProfileID, classEventID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("class event transitioned",
		zap.String("class_event_id", classEventID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.emit(eventType, newClassEventEvent(*updated))
	s.invalidateDashboard(ctx, teacherProfileID)
	return updated, nil
}

// ReleaseMeeting opens the live session. Releases before the start time are rejected.
func (s *ClassEventService) ReleaseMeeting(ctx context.Context, teacherProfileID, classEventID string, req dto.ReleaseMeetingRequest) (*models.ClassEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting url")
	}
	event, err := s.loadOwned(ctx, teacherProfileID, classEventID)
	if err != nil {
		return nil, err
	}
	if event.MeetingStatus == models.MeetingReleased {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "meeting already released")
	}
	now := s.now().UTC()
	if now.Before(event.StartsAt) {
		return nil, appErrors.WithDetails(appErrors.ErrMeetingNotReleasable, map[string]interface{}{"startsAt": event.StartsAt})
	}
	meetingURL := req.MeetingURL
	if meetingURL == "" && event.MeetingURL != nil {
		meetingURL = *event.MeetingURL
	}
	if meetingURL == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "meeting url is required")
	}

	if err := s.events.ReleaseMeeting(ctx, classEventID, meetingURL, now); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "meeting already released")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release meeting")
	}
	updated, err := s.loadOwned(ctx, teacherProfileID, classEventID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMeetingRelease()
	s.logger.Info("meeting released", zap.String("class_event_id", classEventID))
	s.emit(EventClassEventMeetingOpen, newClassEventEvent(*updated))
	return updated, nil
}

func (s *ClassEventService) loadOwned(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error) {
	event, err := s.events.FindByID(ctx, classEventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class event")
	}
	if event.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class event belongs to another teacher")
	}
	return event, nil
}

func (s *ClassEventService) emit(eventType string, data interface{}) {
	if s.emitter != nil {
		s.emitter.Emit(eventType, data)
	}
}

func (s *ClassEventService) invalidateDashboard(ctx context.Context, teacherProfileID string) {
	_ = s.cache.Invalidate(ctx, teacherDashboardCacheKey(teacherProfileID))
}

func invalidPublication(from, to models.PublicationStatus) error {
	return appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

func referenceError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrValidation, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog reference")
}
