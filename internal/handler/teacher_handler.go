package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/middleware"
	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/response"
)

type classEventManager interface {
	ListForTeacher(ctx context.Context, teacherProfileID string, status models.PublicationStatus) ([]models.ClassEvent, error)
	Get(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error)
	Create(ctx context.Context, teacherProfileID string, req dto.CreateClassEventRequest) (*models.ClassEvent, error)
	Publish(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error)
	Finish(ctx context.Context, teacherProfileID, classEventID string) (*models.ClassEvent, error)
	ReleaseMeeting(ctx context.Context, teacherProfileID, classEventID string, req dto.ReleaseMeetingRequest) (*models.ClassEvent, error)
}

type reportingService interface {
	Dashboard(ctx context.Context, teacherProfileID string) (*models.TeacherDashboard, bool, error)
	BuyerList(ctx context.Context, teacherProfileID, classEventID string) (*dto.BuyerListResponse, error)
	ExportBuyers(ctx context.Context, teacherProfileID, classEventID, rawFormat string) (*dto.ExportFile, error)
}

// TeacherHandler serves class management and reporting for teachers.
type TeacherHandler struct {
	classes classEventManager
	reports reportingService
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(classes classEventManager, reports reportingService) *TeacherHandler {
	return &TeacherHandler{classes: classes, reports: reports}
}

// ListClassEvents godoc
// @Summary List the teacher's class events
// @Tags Teacher
// @Produce json
// @Param status query string false "DRAFT, PUBLISHED or FINISHED"
// @Success 200 {object} response.Envelope
// @Router /teacher/class-events [get]
func (h *TeacherHandler) ListClassEvents(c *gin.Context) {
	status := models.PublicationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status"))
		return
	}
	events, err := h.classes.ListForTeacher(c.Request.Context(), viewerFromContext(c).TeacherProfileID, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events, map[string]interface{}{"total": len(events)})
}

// GetClassEvent godoc
// @Summary Get one of the teacher's class events
// @Tags Teacher
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/class-events/{id} [get]
func (h *TeacherHandler) GetClassEvent(c *gin.Context) {
	event, err := h.classes.Get(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// CreateClassEvent godoc
// @Summary Draft a class event
// @Tags Teacher
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassEventRequest true "Class event"
// @Success 201 {object} response.Envelope
// @Router /teacher/class-events [post]
func (h *TeacherHandler) CreateClassEvent(c *gin.Context) {
	var req dto.CreateClassEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class event payload"))
		return
	}
	event, err := h.classes.Create(c.Request.Context(), viewerFromContext(c).TeacherProfileID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Publish godoc
// @Summary Publish a draft
// @Tags Teacher
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/class-events/{id}/publish [post]
func (h *TeacherHandler) Publish(c *gin.Context) {
	event, err := h.classes.Publish(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Finish godoc
// @Summary Finish a published class event
// @Tags Teacher
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/class-events/{id}/finish [post]
func (h *TeacherHandler) Finish(c *gin.Context) {
	event, err := h.classes.Finish(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Release godoc
// @Summary Release the meeting of a started class
// @Tags Teacher
// @Accept json
// @Produce json
// @Param id path string true "Class event ID"
// @Param payload body dto.ReleaseMeetingRequest false "Meeting URL"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/class-events/{id}/release [post]
func (h *TeacherHandler) Release(c *gin.Context) {
	var req dto.ReleaseMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid release payload"))
		return
	}
	event, err := h.classes.ReleaseMeeting(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Buyers godoc
// @Summary Buyer list of a class event
// @Tags Teacher
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/class-events/{id}/buyers [get]
func (h *TeacherHandler) Buyers(c *gin.Context) {
	list, err := h.reports.BuyerList(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list, map[string]interface{}{"total": len(list.Buyers)})
}

// ExportBuyers godoc
// @Summary Download the buyer list
// @Tags Teacher
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class event ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /teacher/class-events/{id}/buyers/export [get]
func (h *TeacherHandler) ExportBuyers(c *gin.Context) {
	file, err := h.reports.ExportBuyers(c.Request.Context(), viewerFromContext(c).TeacherProfileID, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Dashboard godoc
// @Summary Teacher sales dashboard
// @Tags Teacher
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/dashboard [get]
func (h *TeacherHandler) Dashboard(c *gin.Context) {
	dashboard, cacheHit, err := h.reports.Dashboard(c.Request.Context(), viewerFromContext(c).TeacherProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.OK(c, dashboard, middleware.ExtractMeta(c))
}
