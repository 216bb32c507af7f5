package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/middleware"
	"github.com/noah-isme/aulao-api/internal/models"
)

// Handlers bundles every HTTP handler mounted under the API prefix.
type Handlers struct {
	ClassEvents *ClassEventHandler
	Agenda      *AgendaHandler
	Catalog     *CatalogHandler
	Teacher     *TeacherHandler
	Payments    *PaymentHandler
}

// RouteConfig carries what the router needs to authenticate callers.
type RouteConfig struct {
	JWTSecret             string
	PaymentCallbackSecret string
	Viewer                models.Viewer
}

// Register mounts the API routes on the group.
func Register(api *gin.RouterGroup, h Handlers, cfg RouteConfig) {
	payments := api.Group("/payments")
	payments.GET("/:id", h.Payments.Get)

	// Settlement callbacks come from providers, not viewers.
	callbacks := payments.Group("")
	callbacks.Use(middleware.PaymentCallback(cfg.PaymentCallbackSecret))
	callbacks.POST("/:id/confirm", h.Payments.Confirm)
	callbacks.POST("/:id/fail", h.Payments.Fail)

	api.GET("/join/:token", h.ClassEvents.Join)

	viewer := api.Group("")
	viewer.Use(middleware.Viewer(cfg.JWTSecret, cfg.Viewer))

	viewer.GET("/class-events", h.ClassEvents.List)
	viewer.GET("/class-events/:id", h.ClassEvents.Get)
	viewer.GET("/class-events/:id/availability", h.ClassEvents.Availability)

	student := viewer.Group("")
	student.Use(middleware.RequireStudent())
	student.GET("/class-events/:id/access", h.ClassEvents.AccessState)
	student.GET("/class-events/:id/can-enter", h.ClassEvents.CanEnter)
	student.POST("/class-events/:id/purchase", h.ClassEvents.Purchase)
	student.GET("/class-events/:id/join", h.ClassEvents.JoinLink)
	student.GET("/me/agenda", h.Agenda.Agenda)

	institutions := viewer.Group("/institutions")
	institutions.GET("", h.Catalog.ListInstitutions)
	institutions.GET("/:id", h.Catalog.GetInstitution)
	institutions.GET("/:id/year-levels", h.Catalog.YearLevels)
	institutions.GET("/:id/subjects/:subjectId/teachers", h.Catalog.Teachers)
	institutions.GET("/:id/subjects/:subjectId/class-events", h.Catalog.ClassEvents)
	institutions.GET("/:id/subjects/:subjectId/teachers/:teacherId/next", h.Catalog.NextClass)

	teacher := viewer.Group("/teacher")
	teacher.Use(middleware.RequireTeacher())
	teacher.GET("/class-events", h.Teacher.ListClassEvents)
	teacher.POST("/class-events", h.Teacher.CreateClassEvent)
	teacher.GET("/class-events/:id", h.Teacher.GetClassEvent)
	teacher.POST("/class-events/:id/publish", h.Teacher.Publish)
	teacher.POST("/class-events/:id/finish", h.Teacher.Finish)
	teacher.POST("/class-events/:id/release", h.Teacher.Release)
	teacher.GET("/class-events/:id/buyers", h.Teacher.Buyers)
	teacher.GET("/class-events/:id/buyers/export", h.Teacher.ExportBuyers)
	teacher.GET("/dashboard", h.Teacher.Dashboard)
}
