package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/access"
	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/signedlink"
)

type classEventReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassEvent, error)
}

type activeEnrollmentFinder interface {
	FindActive(ctx context.Context, studentProfileID, classEventID string) (*models.Enrollment, error)
}

type joinTokenSigner interface {
	Generate(classEventID, studentProfileID string) (string, time.Time, error)
	Parse(token string) (*signedlink.Claims, error)
}

// AccessServiceParams groups constructor dependencies.
type AccessServiceParams struct {
	Events      classEventReader
	Enrollments activeEnrollmentFinder
	Signer      joinTokenSigner
	// JoinPath prefixes redeemable join tokens, e.g. /api/v1/join/.
	JoinPath string
	Logger   *zap.Logger
}

// AccessService answers what a student may do with a class event right now.
type AccessService struct {
	events      classEventReader
	enrollments activeEnrollmentFinder
	signer      joinTokenSigner
	joinPath    string
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccessService constructs an AccessService.
func NewAccessService(params AccessServiceParams) *AccessService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		events:      params.Events,
		enrollments: params.Enrollments,
		signer:      params.Signer,
		joinPath:    params.JoinPath,
		logger:      logger,
		now:         time.Now,
	}
}

type studentView struct {
	event      *models.ClassEvent
	enrollment *models.Enrollment
}

// load fetches the event and the student's active enrollment. Unpublished
// events stay hidden unless the student already holds a seat in them.
func (s *AccessService) load(ctx context.Context, classEventID, studentProfileID string) (*studentView, error) {
	if classEventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class event id is required")
	}
	event, err := s.events.FindByID(ctx, classEventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class event")
	}

	var enrollment *models.Enrollment
	if studentProfileID != "" {
		enrollment, err = s.enrollments.FindActive(ctx, studentProfileID, classEventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
	}
	if !event.IsPublished() && enrollment == nil {
		return nil, appErrors.ErrEventNotFound
	}
	return &studentView{event: event, enrollment: enrollment}, nil
}

func (s *AccessService) at(override *time.Time) time.Time {
	if override != nil && !override.IsZero() {
		return *override
	}
	return s.now()
}

// GetAccessState evaluates the student's access state at the given instant, or now when at is nil.
func (s *AccessService) GetAccessState(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.AccessStateResponse, error) {
	view, err := s.load(ctx, classEventID, studentProfileID)
	if err != nil {
		return nil, err
	}
	now := s.at(at)
	return &dto.AccessStateResponse{
		ClassEventID:     classEventID,
		StudentProfileID: studentProfileID,
		AccessState:      access.State(*view.event, view.enrollment, now),
		EvaluatedAt:      now.UTC(),
	}, nil
}

// CanEnter reports whether the student may join the live session at the given instant.
func (s *AccessService) CanEnter(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.CanEnterResponse, error) {
	view, err := s.load(ctx, classEventID, studentProfileID)
	if err != nil {
		return nil, err
	}
	now := s.at(at)
	return &dto.CanEnterResponse{
		ClassEventID: classEventID,
		CanEnter:     access.CanEnter(*view.event, view.enrollment, now),
		EvaluatedAt:  now.UTC(),
	}, nil
}

// Availability reports seat accounting for the event.
func (s *AccessService) Availability(ctx context.Context, classEventID, studentProfileID string) (*dto.Availability, error) {
	view, err := s.load(ctx, classEventID, studentProfileID)
	if err != nil {
		return nil, err
	}
	availability := dto.NewAvailability(*view.event)
	return &availability, nil
}

// Detail returns the event with seat accounting and the viewer's access state.
func (s *AccessService) Detail(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.ClassEventDetail, error) {
	view, err := s.load(ctx, classEventID, studentProfileID)
	if err != nil {
		return nil, err
	}
	return buildDetail(*view.event, view.enrollment, s.at(at)), nil
}

func buildDetail(event models.ClassEvent, enrollment *models.Enrollment, now time.Time) *dto.ClassEventDetail {
	state := access.State(event, enrollment, now)
	detail := &dto.ClassEventDetail{
		ClassEvent:     event,
		SpotsRemaining: event.SpotsRemaining(),
		IsSoldOut:      event.IsSoldOut(),
		AccessState:    state,
		CanEnter:       access.CanEnter(event, enrollment, now),
		CanPurchase:    access.Purchasable(event, state),
		Enrollment:     enrollment,
	}
	if !detail.CanEnter {
		detail.ClassEvent.MeetingURL = nil
	}
	return detail
}

// IssueJoinLink signs a short-lived token for a student who can enter now.
func (s *AccessService) IssueJoinLink(ctx context.Context, classEventID, studentProfileID string) (*dto.JoinLink, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "join links are not configured")
	}
	view, err := s.load(ctx, classEventID, studentProfileID)
	if err != nil {
		return nil, err
	}
	if !access.CanEnter(*view.event, view.enrollment, s.now()) {
		return nil, appErrors.WithDetails(appErrors.ErrAccessDenied, map[string]interface{}{
			"accessState": access.State(*view.event, view.enrollment, s.now()),
		})
	}
	token, expiresAt, err := s.signer.Generate(classEventID, studentProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign join link")
	}
	return &dto.JoinLink{Token: token, URL: s.joinPath + token, ExpiresAt: expiresAt.UTC()}, nil
}

// RedeemJoinLink validates the token, re-evaluates access and returns the meeting URL.
func (s *AccessService) RedeemJoinLink(ctx context.Context, token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "join links are not configured")
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, signedlink.ErrExpiredToken) {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "join link expired")
		}
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid join link")
	}
	view, err := s.load(ctx, claims.ClassEventID, claims.StudentProfileID)
	if err != nil {
		return "", err
	}
	if !access.CanEnter(*view.event, view.enrollment, s.now()) || view.event.MeetingURL == nil {
		return "", appErrors.ErrAccessDenied
	}
	s.logger.Info("join link redeemed",
		zap.String("class_event_id", claims.ClassEventID),
		zap.String("student_profile_id", claims.StudentProfileID),
	)
	return *view.event.MeetingURL, nil
}
