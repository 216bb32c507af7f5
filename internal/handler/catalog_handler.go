package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/pkg/response"
)

type catalogService interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	GetInstitution(ctx context.Context, institutionID string) (*dto.InstitutionDetail, error)
	YearLevels(ctx context.Context, institutionID string) ([]models.YearLevel, error)
	TeachersForSubject(ctx context.Context, institutionID, subjectID string) ([]dto.TeacherCard, error)
	ListClassEvents(ctx context.Context, query dto.ClassEventListQuery, studentProfileID string) ([]dto.ClassEventDetail, error)
	NextClass(ctx context.Context, institutionID, subjectID, teacherProfileID string) (*models.ClassEvent, error)
}

// CatalogHandler serves institution and subject browsing.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListInstitutions godoc
// @Summary List institutions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /institutions [get]
func (h *CatalogHandler) ListInstitutions(c *gin.Context) {
	institutions, err := h.service.ListInstitutions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, institutions)
}

// GetInstitution godoc
// @Summary Institution with its curriculum
// @Tags Catalog
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id} [get]
func (h *CatalogHandler) GetInstitution(c *gin.Context) {
	detail, err := h.service.GetInstitution(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// YearLevels godoc
// @Summary Subjects grouped by year
// @Tags Catalog
// @Produce json
// @Param id path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id}/year-levels [get]
func (h *CatalogHandler) YearLevels(c *gin.Context) {
	levels, err := h.service.YearLevels(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, levels)
}

// Teachers godoc
// @Summary Teachers with published classes for a subject
// @Tags Catalog
// @Produce json
// @Param id path string true "Institution ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id}/subjects/{subjectId}/teachers [get]
func (h *CatalogHandler) Teachers(c *gin.Context) {
	teachers, err := h.service.TeachersForSubject(c.Request.Context(), c.Param("id"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teachers)
}

// ClassEvents godoc
// @Summary Published class events of a subject at an institution
// @Tags Catalog
// @Produce json
// @Param id path string true "Institution ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /institutions/{id}/subjects/{subjectId}/class-events [get]
func (h *CatalogHandler) ClassEvents(c *gin.Context) {
	query := dto.ClassEventListQuery{InstitutionID: c.Param("id"), SubjectID: c.Param("subjectId")}
	events, err := h.service.ListClassEvents(c.Request.Context(), query, viewerFromContext(c).StudentProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events, map[string]interface{}{"total": len(events)})
}

// NextClass godoc
// @Summary Next upcoming class of a teacher
// @Tags Catalog
// @Produce json
// @Param id path string true "Institution ID"
// @Param subjectId path string true "Subject ID"
// @Param teacherId path string true "Teacher profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{id}/subjects/{subjectId}/teachers/{teacherId}/next [get]
func (h *CatalogHandler) NextClass(c *gin.Context) {
	event, err := h.service.NextClass(c.Request.Context(), c.Param("id"), c.Param("subjectId"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}
