package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/dto"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/response"
)

type accessService interface {
	GetAccessState(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.AccessStateResponse, error)
	CanEnter(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.CanEnterResponse, error)
	Availability(ctx context.Context, classEventID, studentProfileID string) (*dto.Availability, error)
	Detail(ctx context.Context, classEventID, studentProfileID string, at *time.Time) (*dto.ClassEventDetail, error)
	IssueJoinLink(ctx context.Context, classEventID, studentProfileID string) (*dto.JoinLink, error)
	RedeemJoinLink(ctx context.Context, token string) (string, error)
}

type classEventLister interface {
	ListClassEvents(ctx context.Context, query dto.ClassEventListQuery, studentProfileID string) ([]dto.ClassEventDetail, error)
}

type seatPurchaser interface {
	PurchaseSeat(ctx context.Context, classEventID, studentProfileID string, req dto.PurchaseRequest) (*dto.PurchaseResponse, error)
}

// ClassEventHandler serves the student-facing class event endpoints.
type ClassEventHandler struct {
	access    accessService
	catalog   classEventLister
	purchases seatPurchaser
}

// NewClassEventHandler constructs the handler.
func NewClassEventHandler(access accessService, catalog classEventLister, purchases seatPurchaser) *ClassEventHandler {
	return &ClassEventHandler{access: access, catalog: catalog, purchases: purchases}
}

// List godoc
// @Summary List published class events
// @Tags ClassEvents
// @Produce json
// @Param institutionId query string false "Institution ID"
// @Param subjectId query string false "Subject ID"
// @Param teacherId query string false "Teacher profile ID"
// @Success 200 {object} response.Envelope
// @Router /class-events [get]
func (h *ClassEventHandler) List(c *gin.Context) {
	var query dto.ClassEventListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	events, err := h.catalog.ListClassEvents(c.Request.Context(), query, viewerFromContext(c).StudentProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events, map[string]interface{}{"total": len(events)})
}

// Get godoc
// @Summary Class event detail with seats and access state
// @Tags ClassEvents
// @Produce json
// @Param id path string true "Class event ID"
// @Param at query string false "Reference time (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-events/{id} [get]
func (h *ClassEventHandler) Get(c *gin.Context) {
	at, err := referenceTime(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.access.Detail(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// AccessState godoc
// @Summary Access state of the viewer for a class event
// @Tags ClassEvents
// @Produce json
// @Param id path string true "Class event ID"
// @Param at query string false "Reference time (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /class-events/{id}/access [get]
func (h *ClassEventHandler) AccessState(c *gin.Context) {
	at, err := referenceTime(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.access.GetAccessState(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// CanEnter godoc
// @Summary Whether the viewer may join the live session
// @Tags ClassEvents
// @Produce json
// @Param id path string true "Class event ID"
// @Param at query string false "Reference time (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /class-events/{id}/can-enter [get]
func (h *ClassEventHandler) CanEnter(c *gin.Context) {
	at, err := referenceTime(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.access.CanEnter(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Availability godoc
// @Summary Seat availability
// @Tags ClassEvents
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Router /class-events/{id}/availability [get]
func (h *ClassEventHandler) Availability(c *gin.Context) {
	availability, err := h.access.Availability(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, availability)
}

// Purchase godoc
// @Summary Buy a seat
// @Tags ClassEvents
// @Accept json
// @Produce json
// @Param id path string true "Class event ID"
// @Param payload body dto.PurchaseRequest false "Payment provider"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /class-events/{id}/purchase [post]
func (h *ClassEventHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purchase payload"))
		return
	}
	result, err := h.purchases.PurchaseSeat(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// JoinLink godoc
// @Summary Issue a short-lived join link
// @Tags ClassEvents
// @Produce json
// @Param id path string true "Class event ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /class-events/{id}/join [get]
func (h *ClassEventHandler) JoinLink(c *gin.Context) {
	link, err := h.access.IssueJoinLink(c.Request.Context(), c.Param("id"), viewerFromContext(c).StudentProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// Join godoc
// @Summary Redeem a join link
// @Tags ClassEvents
// @Param token path string true "Join token"
// @Success 302
// @Failure 401 {object} response.Envelope
// @Router /join/{token} [get]
func (h *ClassEventHandler) Join(c *gin.Context) {
	meetingURL, err := h.access.RedeemJoinLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, meetingURL)
}
