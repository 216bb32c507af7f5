package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

type catalogReader interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	FindInstitution(ctx context.Context, id string) (*models.Institution, error)
	FindSubject(ctx context.Context, id string) (*models.Subject, error)
	FindTeacher(ctx context.Context, id string) (*models.TeacherProfile, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	ListInstitutionSubjects(ctx context.Context, institutionID string) ([]models.InstitutionSubjectDetail, error)
	ListTeachersWithPublishedClasses(ctx context.Context, institutionID, subjectID string) ([]models.TeacherProfile, error)
}

type classEventLister interface {
	List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error)
}

// CatalogServiceParams groups constructor dependencies.
type CatalogServiceParams struct {
	Catalog     catalogReader
	Events      classEventLister
	Enrollments activeEnrollmentFinder
	Logger      *zap.Logger
}

// CatalogService serves the read-only browsing surface.
type CatalogService struct {
	catalog     catalogReader
	events      classEventLister
	enrollments activeEnrollmentFinder
	logger      *zap.Logger
	now         func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(params CatalogServiceParams) *CatalogService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		catalog:     params.Catalog,
		events:      params.Events,
		enrollments: params.Enrollments,
		logger:      logger,
		now:         time.Now,
	}
}

// ListInstitutions returns every institution.
func (s *CatalogService) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	institutions, err := s.catalog.ListInstitutions(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list institutions")
	}
	return institutions, nil
}

// GetInstitution returns the institution with its curriculum grouped by year.
func (s *CatalogService) GetInstitution(ctx context.Context, institutionID string) (*dto.InstitutionDetail, error) {
	institution, err := s.catalog.FindInstitution(ctx, institutionID)
	if err != nil {
		return nil, notFoundOr(err, "institution not found", "failed to load institution")
	}
	levels, err := s.YearLevels(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	return &dto.InstitutionDetail{Institution: *institution, YearLevels: levels}, nil
}

// YearLevels groups the institution's subjects by year label in year order.
func (s *CatalogService) YearLevels(ctx context.Context, institutionID string) ([]models.YearLevel, error) {
	items, err := s.catalog.ListInstitutionSubjects(ctx, institutionID)
	if err != nil {
		return nil, internalError(err, "failed to load curriculum")
	}
	return groupYearLevels(items), nil
}

func groupYearLevels(items []models.InstitutionSubjectDetail) []models.YearLevel {
	levels := make([]models.YearLevel, 0)
	index := make(map[string]int)
	for _, item := range items {
		i, ok := index[item.YearLabel]
		if !ok {
			i = len(levels)
			index[item.YearLabel] = i
			levels = append(levels, models.YearLevel{YearLabel: item.YearLabel, YearOrder: item.YearOrder, Subjects: []models.Subject{}})
		}
		levels[i].Subjects = append(levels[i].Subjects, models.Subject{ID: item.SubjectID, Name: item.SubjectName, Icon: item.SubjectIcon})
	}
	return levels
}

// TeachersForSubject lists teachers with a published class for the subject at the institution.
func (s *CatalogService) TeachersForSubject(ctx context.Context, institutionID, subjectID string) ([]dto.TeacherCard, error) {
	teachers, err := s.catalog.ListTeachersWithPublishedClasses(ctx, institutionID, subjectID)
	if err != nil {
		return nil, internalError(err, "failed to list teachers")
	}
	cards := make([]dto.TeacherCard, 0, len(teachers))
	for _, teacher := range teachers {
		card := dto.TeacherCard{Profile: teacher}
		if user, err := s.catalog.FindUser(ctx, teacher.UserID); err == nil {
			card.Name = user.Name
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load teacher")
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// ListClassEvents returns published class events matching the query, earliest first,
// annotated with seat accounting and the viewer's access state.
func (s *CatalogService) ListClassEvents(ctx context.Context, query dto.ClassEventListQuery, studentProfileID string) ([]dto.ClassEventDetail, error) {
	events, err := s.events.List(ctx, models.ClassEventFilter{
		InstitutionID:    query.InstitutionID,
		SubjectID:        query.SubjectID,
		TeacherProfileID: query.TeacherID,
		Status:           models.PublicationPublished,
	})
	if err != nil {
		return nil, internalError(err, "failed to list class events")
	}
	now := s.now()
	details := make([]dto.ClassEventDetail, 0, len(events))
	for _, event := range events {
		var enrollment *models.Enrollment
		if studentProfileID != "" && s.enrollments != nil {
			enrollment, err = s.enrollments.FindActive(ctx, studentProfileID, event.ID)
			if err != nil {
				return nil, internalError(err, "failed to load enrollment")
			}
		}
		details = append(details, *buildDetail(event, enrollment, now))
	}
	return details, nil
}

// NextClass returns the teacher's next published class for the subject at the institution.
func (s *CatalogService) NextClass(ctx context.Context, institutionID, subjectID, teacherProfileID string) (*models.ClassEvent, error) {
	now := s.now()
	events, err := s.events.List(ctx, models.ClassEventFilter{
		InstitutionID:    institutionID,
		SubjectID:        subjectID,
		TeacherProfileID: teacherProfileID,
		Status:           models.PublicationPublished,
		StartsAfter:      &now,
	})
	if err != nil {
		return nil, internalError(err, "failed to load next class")
	}
	if len(events) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEventNotFound, "no upcoming class")
	}
	next := events[0]
	next.MeetingURL = nil
	return &next, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, internal)
}
