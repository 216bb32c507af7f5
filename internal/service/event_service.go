package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/pkg/broker"
	"github.com/noah-isme/aulao-api/pkg/jobs"
)

// Domain event routing keys.
const (
	EventEnrollmentCreated     = "enrollment.created"
	EventEnrollmentPaid        = "enrollment.paid"
	EventEnrollmentCancelled   = "enrollment.cancelled"
	EventClassEventPublished   = "class_event.published"
	EventClassEventFinished    = "class_event.finished"
	EventClassEventMeetingOpen = "class_event.meeting_released"
)

// DomainEvent is the envelope published to the broker.
type DomainEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

// EventEmitter records domain events after their state change committed.
type EventEmitter interface {
	Emit(eventType string, data interface{})
}

type eventQueue interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job jobs.Job) error
}

// EventServiceConfig tunes the delivery worker pool.
type EventServiceConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// EventService hands domain events to the broker from a background queue so
// request paths never wait on broker latency.
type EventService struct {
	publisher broker.Publisher
	queue     eventQueue
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	stopOnce  sync.Once
}

// NewEventService wires the delivery queue to the publisher.
func NewEventService(publisher broker.Publisher, metrics *MetricsService, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EventService{publisher: publisher, metrics: metrics, logger: logger, now: time.Now}
	svc.queue = jobs.NewQueue("domain-events", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop: func(job jobs.Job, _ error) {
			metrics.RecordDomainEvent(job.Type, "dropped")
		},
	})
	return svc
}

// Start launches the delivery workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes buffered events and closes the publisher it owns. Later calls are no-ops.
func (s *EventService) Stop() {
	s.stopOnce.Do(func() {
		s.queue.Stop()
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("close event publisher", zap.Error(err))
		}
	})
}

// Emit enqueues an event. Failures are logged; the originating state change has already committed.
func (s *EventService) Emit(eventType string, data interface{}) {
	if s == nil {
		return
	}
	event := DomainEvent{ID: uuid.NewString(), Type: eventType, OccurredAt: s.now().UTC(), Data: data}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode domain event", zap.String("type", eventType), zap.Error(err))
		s.metrics.RecordDomainEvent(eventType, "encode_error")
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: event.ID, Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn("domain event not queued", zap.String("type", eventType), zap.String("event_id", event.ID), zap.Error(err))
		s.metrics.RecordDomainEvent(eventType, "rejected")
	}
}

func (s *EventService) deliver(ctx context.Context, job jobs.Job) error {
	if err := s.publisher.Publish(ctx, job.Type, job.Payload); err != nil {
		s.metrics.RecordDomainEvent(job.Type, "failed")
		return err
	}
	s.metrics.RecordDomainEvent(job.Type, "published")
	return nil
}

// EnrollmentEvent is the payload of enrollment.* events.
type EnrollmentEvent struct {
	EnrollmentID     string                  `json:"enrollmentId"`
	ClassEventID     string                  `json:"classEventId"`
	TeacherProfileID string                  `json:"teacherProfileId,omitempty"`
	StudentProfileID string                  `json:"studentProfileId"`
	Status           models.EnrollmentStatus `json:"status"`
	PaymentID        string                  `json:"paymentId"`
	Provider         models.PaymentProvider  `json:"provider"`
	AmountCents      int64                   `json:"amountCents"`
}

// ClassEventEvent is the payload of class_event.* events.
type ClassEventEvent struct {
	ClassEventID      string                   `json:"classEventId"`
	TeacherProfileID  string                   `json:"teacherProfileId"`
	PublicationStatus models.PublicationStatus `json:"publicationStatus"`
	MeetingStatus     models.MeetingStatus     `json:"meetingStatus"`
	StartsAt          time.Time                `json:"startsAt"`
}

func newClassEventEvent(event models.ClassEvent) ClassEventEvent {
	return ClassEventEvent{
		ClassEventID:      event.ID,
		TeacherProfileID:  event.TeacherProfileID,
		PublicationStatus: event.PublicationStatus,
		MeetingStatus:     event.MeetingStatus,
		StartsAt:          event.StartsAt,
	}
}
